package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string   `mapstructure:"PORT"`
	Env               string   `mapstructure:"ENV"`
	BaseURL           string   `mapstructure:"BASE_URL"`
	DatabaseURL       string   `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32    `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer        string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL       string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience      string   `mapstructure:"AUTH_AUDIENCE"`
	AuthDevSigningKey string   `mapstructure:"AUTH_DEV_SIGNING_KEY"`
	ClaimTokenSecret  string   `mapstructure:"CLAIM_TOKEN_SECRET"`
	ClaimTokenTTLDays int      `mapstructure:"CLAIM_TOKEN_TTL_DAYS"`
	AccessKeyTTLDays  int      `mapstructure:"ACCESS_KEY_TTL_DAYS"`
	SMSProviderURL    string   `mapstructure:"SMS_PROVIDER_URL"`
	SMSAccountSID     string   `mapstructure:"SMS_ACCOUNT_SID"`
	SMSAuthToken      string   `mapstructure:"SMS_AUTH_TOKEN"`
	SMSFromNumber     string   `mapstructure:"SMS_FROM_NUMBER"`
	CORSOrigins       []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS      float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int      `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("BASE_URL", "http://localhost:8000")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CLAIM_TOKEN_TTL_DAYS", 90)
	v.SetDefault("ACCESS_KEY_TTL_DAYS", 0) // 0 = access keys never expire
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("BASE_URL")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("AUTH_DEV_SIGNING_KEY")
	v.BindEnv("CLAIM_TOKEN_SECRET")
	v.BindEnv("CLAIM_TOKEN_TTL_DAYS")
	v.BindEnv("ACCESS_KEY_TTL_DAYS")
	v.BindEnv("SMS_PROVIDER_URL")
	v.BindEnv("SMS_ACCOUNT_SID")
	v.BindEnv("SMS_AUTH_TOKEN")
	v.BindEnv("SMS_FROM_NUMBER")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests get doctor access.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: Set ENV=production and configure AUTH_ISSUER for production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Production requires
// a real token issuer for doctor authentication and a claim-token secret.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.AuthIssuer == "" && c.AuthDevSigningKey == "" {
			return fmt.Errorf(
				"AUTH_ISSUER is required in production. " +
					"Refusing to start without authentication configuration")
		}
		if c.ClaimTokenSecret == "" {
			return fmt.Errorf("CLAIM_TOKEN_SECRET is required in production")
		}
	}

	if c.AccessKeyTTLDays < 0 {
		return fmt.Errorf("ACCESS_KEY_TTL_DAYS must be >= 0, got %d", c.AccessKeyTTLDays)
	}
	if c.ClaimTokenTTLDays <= 0 {
		return fmt.Errorf("CLAIM_TOKEN_TTL_DAYS must be > 0, got %d", c.ClaimTokenTTLDays)
	}

	// SMS settings are all-or-nothing: a partially configured provider is
	// almost certainly a deployment mistake.
	smsSet := 0
	for _, s := range []string{c.SMSProviderURL, c.SMSAccountSID, c.SMSAuthToken, c.SMSFromNumber} {
		if s != "" {
			smsSet++
		}
	}
	if smsSet != 0 && smsSet != 4 {
		return fmt.Errorf("SMS_PROVIDER_URL, SMS_ACCOUNT_SID, SMS_AUTH_TOKEN and SMS_FROM_NUMBER must be set together")
	}

	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("BASE_URL must be an absolute http(s) origin, got %q", c.BaseURL)
	}

	return nil
}

// SMSConfigured reports whether a real SMS provider has been configured.
func (c *Config) SMSConfigured() bool {
	return c.SMSProviderURL != "" && c.SMSAccountSID != "" && c.SMSAuthToken != "" && c.SMSFromNumber != ""
}
