package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr        string
	DBDSN           string
	JWTIssuer       string
	JWTSecret       string
	JWTTTL          time.Duration
	WebSocketOrigin string
	DefaultBalance  string
	DefaultLeverage int
	QuoteTimeout    time.Duration
	ExpirySweep     time.Duration
	LogLevel        string
}

// Load reads configuration from the environment. DB_DSN is optional; without
// it the server runs on the in-memory store.
func Load() (Config, error) {
	var c Config
	var missing []string
	c.HTTPAddr = os.Getenv("HTTP_ADDR")
	if c.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	c.DBDSN = os.Getenv("DB_DSN")
	c.JWTIssuer = os.Getenv("JWT_ISSUER")
	if c.JWTIssuer == "" {
		missing = append(missing, "JWT_ISSUER")
	}
	c.JWTSecret = os.Getenv("JWT_SECRET")
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	jwtTTL := os.Getenv("JWT_TTL")
	if jwtTTL == "" {
		missing = append(missing, "JWT_TTL")
	} else {
		d, err := time.ParseDuration(jwtTTL)
		if err != nil {
			return c, err
		}
		c.JWTTTL = d
	}
	c.WebSocketOrigin = os.Getenv("WS_ORIGIN")
	if c.WebSocketOrigin == "" {
		c.WebSocketOrigin = "*"
	}
	c.DefaultBalance = strings.TrimSpace(os.Getenv("DEFAULT_BALANCE"))
	leverageRaw := strings.TrimSpace(os.Getenv("DEFAULT_LEVERAGE"))
	if leverageRaw != "" {
		leverage, err := strconv.Atoi(leverageRaw)
		if err != nil || leverage <= 0 {
			return c, errors.New("invalid DEFAULT_LEVERAGE")
		}
		c.DefaultLeverage = leverage
	}
	quoteTimeout := os.Getenv("QUOTE_TIMEOUT")
	if quoteTimeout != "" {
		d, err := time.ParseDuration(quoteTimeout)
		if err != nil {
			return c, err
		}
		c.QuoteTimeout = d
	}
	expirySweep := os.Getenv("EXPIRY_SWEEP_INTERVAL")
	if expirySweep == "" {
		c.ExpirySweep = time.Minute
	} else {
		d, err := time.ParseDuration(expirySweep)
		if err != nil {
			return c, err
		}
		c.ExpirySweep = d
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return c, nil
}
