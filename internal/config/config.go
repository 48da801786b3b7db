package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Re-application policies for refused volunteers.
const (
	ReapplyNever        = "never"
	ReapplyAfterRefusal = "after_refusal"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string `validate:"required,oneof=development test production"`
	Port                string `validate:"required,numeric"`
	SessionSecret       string
	DatabaseURL         string `validate:"required"`
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
	SendinblueAPIKey    string // SENDINBLUE_API_KEY for decision emails (Brevo)
	MailFrom            string `validate:"omitempty,email"`
	LogLevel            string `validate:"oneof=trace debug info warn error"`

	ReapplyPolicy        string `validate:"oneof=never after_refusal"`
	CheckCapacityOnApply bool
	ReconcileSchedule    string // six-field cron spec; empty disables the job
	StatsCacheTTL        time.Duration `validate:"gte=0"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAIL_FROM", "noreply@helpmate.app")
	viper.SetDefault("REAPPLY_POLICY", ReapplyNever)
	viper.SetDefault("CHECK_CAPACITY_ON_APPLY", true)
	viper.SetDefault("RECONCILE_SCHEDULE", "0 */30 * * * *")
	viper.SetDefault("STATS_CACHE_TTL", "60s")

	cfg := &Config{
		Env:                  strings.ToLower(viper.GetString("APP_ENV")),
		Port:                 viper.GetString("PORT"),
		SessionSecret:        viper.GetString("SESSION_SECRET"),
		DatabaseURL:          viper.GetString("DATABASE_URL"),
		RedisURL:             viper.GetString("REDIS_URL"),
		FrontendURLEndsWith:  viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:          viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:    viper.GetBool("ALLOW_CROSS_SITE_DEV"),
		HealthAdminKey:       viper.GetString("HEALTH_ADMIN_KEY"),
		SendinblueAPIKey:     viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:             viper.GetString("MAIL_FROM"),
		LogLevel:             strings.ToLower(viper.GetString("LOG_LEVEL")),
		ReapplyPolicy:        strings.ToLower(viper.GetString("REAPPLY_POLICY")),
		CheckCapacityOnApply: viper.GetBool("CHECK_CAPACITY_ON_APPLY"),
		ReconcileSchedule:    strings.TrimSpace(viper.GetString("RECONCILE_SCHEDULE")),
		StatsCacheTTL:        viper.GetDuration("STATS_CACHE_TTL"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints after loading.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
