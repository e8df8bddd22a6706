// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Identity Provider（外部認証サービス）
	IdPURL    string
	IdPAPIKey string

	// Token
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenExpiry  int // 分単位
	RefreshTokenExpiry int // 日単位

	// Rate Limit
	RateLimitGeneral int
	RateLimitTxAdd   int

	// Server
	ServerPort  string
	FrontendURL string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigins []string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
// 空の秘密鍵で署名してしまう事故を防ぐため、トークン秘密鍵は必須とする。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.IdPURL = os.Getenv("IDP_URL")
	if cfg.IdPURL == "" {
		missing = append(missing, "IDP_URL")
	}

	cfg.IdPAPIKey = os.Getenv("IDP_API_KEY")
	if cfg.IdPAPIKey == "" {
		missing = append(missing, "IDP_API_KEY")
	}

	cfg.AccessTokenSecret = os.Getenv("ACCESS_TOKEN_SECRET")
	if cfg.AccessTokenSecret == "" {
		missing = append(missing, "ACCESS_TOKEN_SECRET")
	}

	cfg.RefreshTokenSecret = os.Getenv("REFRESH_TOKEN_SECRET")
	if cfg.RefreshTokenSecret == "" {
		missing = append(missing, "REFRESH_TOKEN_SECRET")
	}

	cfg.FrontendURL = os.Getenv("FRONTEND_URL")
	if cfg.FrontendURL == "" {
		missing = append(missing, "FRONTEND_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.AccessTokenExpiry = getEnvInt("ACCESS_TOKEN_EXPIRY_MINUTES", 15)
	cfg.RefreshTokenExpiry = getEnvInt("REFRESH_TOKEN_EXPIRY_DAYS", 7)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitTxAdd = getEnvInt("RATE_LIMIT_TX_ADD", 20)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.FrontendURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigins = splitOrigins(getEnvString("CORS_ALLOWED_ORIGINS", "http://localhost:5173"))

	return cfg, nil
}

// splitOrigins はカンマ区切りのオリジン指定をスライスに分解する。
// 空要素と前後の空白は取り除く。
func splitOrigins(s string) []string {
	parts := strings.Split(s, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}
