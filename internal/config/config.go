/**
 * @description
 * Configuration management for the settlement engine. Settings come from
 * environment variables, with defaults for the platform rates and the cron
 * schedules.
 */
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort     string `mapstructure:"SERVER_PORT"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	InternalAPIKey string `mapstructure:"INTERNAL_API_KEY"`

	TransferAPIURL string `mapstructure:"TRANSFER_API_URL"`
	TransferAPIKey string `mapstructure:"TRANSFER_API_KEY"`

	VATRate        float64 `mapstructure:"VAT_RATE"`
	CommissionRate float64 `mapstructure:"COMMISSION_RATE"`

	OfferExpirySchedule   string `mapstructure:"OFFER_EXPIRY_SCHEDULE"`
	OfferReminderSchedule string `mapstructure:"OFFER_REMINDER_SCHEDULE"`
	PayoutBatchSchedule   string `mapstructure:"PAYOUT_BATCH_SCHEDULE"`

	WebhookRateLimit         int `mapstructure:"WEBHOOK_RATE_LIMIT"`
	WebhookRateWindowSeconds int `mapstructure:"WEBHOOK_RATE_WINDOW_SECONDS"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("VAT_RATE", 0.22)
	viper.SetDefault("COMMISSION_RATE", 0.30)
	viper.SetDefault("OFFER_EXPIRY_SCHEDULE", "0 2 * * *")    // daily at 02:00
	viper.SetDefault("OFFER_REMINDER_SCHEDULE", "0 8 * * *")  // daily at 08:00
	viper.SetDefault("PAYOUT_BATCH_SCHEDULE", "0 9 * * MON")  // Monday mornings
	viper.SetDefault("WEBHOOK_RATE_LIMIT", 30)
	viper.SetDefault("WEBHOOK_RATE_WINDOW_SECONDS", 60)
	viper.AutomaticEnv()

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("INTERNAL_API_KEY")
	_ = viper.BindEnv("TRANSFER_API_URL")
	_ = viper.BindEnv("TRANSFER_API_KEY")
	_ = viper.BindEnv("VAT_RATE")
	_ = viper.BindEnv("COMMISSION_RATE")
	_ = viper.BindEnv("OFFER_EXPIRY_SCHEDULE")
	_ = viper.BindEnv("OFFER_REMINDER_SCHEDULE")
	_ = viper.BindEnv("PAYOUT_BATCH_SCHEDULE")
	_ = viper.BindEnv("WEBHOOK_RATE_LIMIT")
	_ = viper.BindEnv("WEBHOOK_RATE_WINDOW_SECONDS")

	if err = viper.Unmarshal(&config); err != nil {
		return config, err
	}
	if port := os.Getenv("PORT"); port != "" {
		config.ServerPort = port
	}

	if config.VATRate < 0 || config.VATRate >= 1 {
		return config, fmt.Errorf("VAT_RATE must be within [0, 1), got %v", config.VATRate)
	}
	if config.CommissionRate < 0 || config.CommissionRate >= 1 {
		return config, fmt.Errorf("COMMISSION_RATE must be within [0, 1), got %v", config.CommissionRate)
	}

	return config, nil
}
