// Package model はドメインモデルを定義する。
package model

import "time"

// User は外部IdPが管理するアイデンティティの公開属性を表す。
// IDは不変。EmailとFullNameはプロフィール更新で変更され得る。
type User struct {
	ID       string
	Email    string
	FullName string
}

// Profile はアイデンティティ1件につき1行のローカルプロフィールを表す。
// 金額系フィールドは表示用の独立した値であり、取引台帳から自動再計算されない。
type Profile struct {
	ID              string // IdP側のアイデンティティIDと同一
	Email           string
	FullName        string
	PlanID          string
	Balance         float64
	TotalInvestment float64
	TotalProfit     float64
	JoinDate        time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
