package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string
	Env               string
	DatabaseURL       string
	JWTSecret         []byte
	TokenTTLHours     int
	CORSOrigins       []string
	DBMaxConns        int
	DBMinConns        int
	RequestTimeoutSec int
	AppPublicURL      string
}

func Load() *Config {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("TOKEN_TTL_HOURS", 24)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 0)
	v.SetDefault("REQUEST_TIMEOUT_SEC", 30)

	for _, k := range []string{"PORT", "ENV", "DATABASE_URL", "JWT_SECRET",
		"TOKEN_TTL_HOURS", "CORS_ORIGINS", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"REQUEST_TIMEOUT_SEC", "APP_PUBLIC_URL"} {
		_ = v.BindEnv(k)
	}

	// .env é opcional (dev); em produção tudo vem do ambiente.
	_ = v.ReadInConfig()

	jwtSecret := v.GetString("JWT_SECRET")
	if len(jwtSecret) < 32 {
		jwtSecret = "default-secret-min-32-chars-required!!"
	}

	var origins []string
	for _, o := range strings.Split(v.GetString("CORS_ORIGINS"), ",") {
		if t := strings.TrimSpace(o); t != "" {
			origins = append(origins, t)
		}
	}

	return &Config{
		Port:              v.GetString("PORT"),
		Env:               v.GetString("ENV"),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		JWTSecret:         []byte(jwtSecret),
		TokenTTLHours:     v.GetInt("TOKEN_TTL_HOURS"),
		CORSOrigins:       origins,
		DBMaxConns:        v.GetInt("DB_MAX_CONNS"),
		DBMinConns:        v.GetInt("DB_MIN_CONNS"),
		RequestTimeoutSec: v.GetInt("REQUEST_TIMEOUT_SEC"),
		AppPublicURL:      v.GetString("APP_PUBLIC_URL"),
	}
}

func (c *Config) IsDev() bool { return c.Env == "development" }
