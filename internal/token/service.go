// Package token は署名付きセッショントークンの発行と検証を提供する。
// サーバーはセッションテーブルを持たず、有効性は署名と有効期限のみで決まる。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind はトークン種別を表す。
// アクセストークンとリフレッシュトークンは別々の秘密鍵で署名されるため、
// 種別を取り違えた検証は必ず署名不正として失敗する。
type Kind string

const (
	// KindAccess は短命のアクセストークンを表す。
	KindAccess Kind = "access"
	// KindRefresh は長命のリフレッシュトークンを表す。
	KindRefresh Kind = "refresh"
)

var (
	// ErrInvalidToken は署名不正またはペイロード不正を表す。
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired は有効期限切れを表す。署名不正とは区別される。
	ErrTokenExpired = errors.New("token expired")
)

// Claims はトークンに埋め込むクレームを表す。
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Service はトークンの発行・検証を行う。状態を持たない。
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewService はServiceを生成する。
// accessMinutesはアクセストークンの有効期間（分）、refreshDaysはリフレッシュトークンの有効期間（日）。
func NewService(accessSecret, refreshSecret string, accessMinutes, refreshDays int) *Service {
	return &Service{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  time.Duration(accessMinutes) * time.Minute,
		refreshExpiry: time.Duration(refreshDays) * 24 * time.Hour,
	}
}

// IssueAccessToken はアクセストークンを発行する。
// 失敗は秘密鍵の設定不備など署名段階の異常のみ。
func (s *Service) IssueAccessToken(userID, email string) (string, error) {
	return s.issue(userID, email, s.accessExpiry, s.accessSecret)
}

// IssueRefreshToken はリフレッシュトークンを発行する。
func (s *Service) IssueRefreshToken(userID, email string) (string, error) {
	return s.issue(userID, email, s.refreshExpiry, s.refreshSecret)
}

// issue は指定された有効期間と秘密鍵でトークンを署名する。
func (s *Service) issue(userID, email string, expiry time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify はトークンを検証し、クレームを返す。
// kindに対応する秘密鍵で検証するため、アクセストークンをリフレッシュトークンとして
// 検証する（またはその逆の）試みはErrInvalidTokenとして失敗する。
// 期限切れはErrTokenExpired、それ以外の検証失敗はErrInvalidTokenを返す。
func (s *Service) Verify(tokenString string, kind Kind) (*Claims, error) {
	secret := s.accessSecret
	if kind == KindRefresh {
		secret = s.refreshSecret
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// AccessTokenMaxAge はアクセストークンCookieのMax-Age（秒）を返す。
func (s *Service) AccessTokenMaxAge() int {
	return int(s.accessExpiry.Seconds())
}

// RefreshTokenMaxAge はリフレッシュトークンCookieのMax-Age（秒）を返す。
func (s *Service) RefreshTokenMaxAge() int {
	return int(s.refreshExpiry.Seconds())
}
