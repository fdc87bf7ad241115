package config

import (
	logger "github.com/Bparsons0904/goLogger"

	"github.com/spf13/viper"
)

type Config struct {
	GeneralVersion       string `mapstructure:"GENERAL_VERSION"`
	Environment          string `mapstructure:"ENVIRONMENT"`
	ServerPort           int    `mapstructure:"SERVER_PORT"`
	CorsAllowOrigins     string `mapstructure:"CORS_ALLOW_ORIGINS"`
	DatabaseDriver       string `mapstructure:"DB_DRIVER"`
	DatabaseHost         string `mapstructure:"DB_HOST"`
	DatabasePort         int    `mapstructure:"DB_PORT"`
	DatabaseName         string `mapstructure:"DB_NAME"`
	DatabaseUser         string `mapstructure:"DB_USER"`
	DatabasePassword     string `mapstructure:"DB_PASSWORD"`
	DatabaseSqlitePath   string `mapstructure:"DB_SQLITE_PATH"`
	DatabaseCacheAddress string `mapstructure:"DB_CACHE_ADDRESS"`
	DatabaseCachePort    int    `mapstructure:"DB_CACHE_PORT"`
	OdooURL              string `mapstructure:"ODOO_URL"`
	OdooDatabase         string `mapstructure:"ODOO_DB"`
	OdooUsername         string `mapstructure:"ODOO_USERNAME"`
	OdooPassword         string `mapstructure:"ODOO_PASSWORD"`
	OdooProductID        int64  `mapstructure:"ODOO_PRODUCT_ID"`
	OdooProductName      string `mapstructure:"ODOO_PRODUCT_NAME"`
	OdooServiceName      string `mapstructure:"ODOO_SERVICE_NAME"`
	OdooJournalBoleta    int64  `mapstructure:"ODOO_JOURNAL_BOLETA"`
	OdooJournalFactura   int64  `mapstructure:"ODOO_JOURNAL_FACTURA"`
	OdooJournalInvoice   string `mapstructure:"ODOO_JOURNAL_INVOICE"`
	OdooTimeoutSeconds   int    `mapstructure:"ODOO_TIMEOUT_SECONDS"`
	SmtpHost             string `mapstructure:"SMTP_HOST"`
	SmtpPort             int    `mapstructure:"SMTP_PORT"`
	SmtpUser             string `mapstructure:"SMTP_USER"`
	SmtpPassword         string `mapstructure:"SMTP_PASS"`
	SmtpFrom             string `mapstructure:"SMTP_FROM"`
	AlertEmails          string `mapstructure:"ALERT_EMAILS"`
}

var ConfigInstance Config

func New() (Config, error) {
	log := logger.New("config").Function("New")
	log.Info("Initializing config")

	// Enable automatic environment variable reading first
	viper.AutomaticEnv()

	// Bind environment variables to config keys
	envVars := []string{
		"GENERAL_VERSION", "ENVIRONMENT", "SERVER_PORT", "CORS_ALLOW_ORIGINS",
		"DB_DRIVER", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD", "DB_SQLITE_PATH",
		"DB_CACHE_ADDRESS", "DB_CACHE_PORT",
		"ODOO_URL", "ODOO_DB", "ODOO_USERNAME", "ODOO_PASSWORD",
		"ODOO_PRODUCT_ID", "ODOO_PRODUCT_NAME", "ODOO_SERVICE_NAME",
		"ODOO_JOURNAL_BOLETA", "ODOO_JOURNAL_FACTURA", "ODOO_JOURNAL_INVOICE", "ODOO_TIMEOUT_SECONDS",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS", "SMTP_FROM",
		"ALERT_EMAILS",
	}

	for _, env := range envVars {
		if err := viper.BindEnv(env); err != nil {
			log.Warn("Failed to bind environment variable", "env", env, "error", err)
		}
	}

	// Check if key environment variables are already set
	envVarsSet := viper.IsSet("SERVER_PORT") && (viper.IsSet("DB_HOST") || viper.IsSet("DB_SQLITE_PATH"))

	if envVarsSet {
		log.Info("Environment variables detected, skipping file loading")
	} else {
		log.Info("Environment variables not found, attempting to load from files")

		// Load base .env file
		viper.SetConfigFile(".env")
		viper.SetConfigType("env")

		if err := viper.ReadInConfig(); err != nil {
			log.Warn("Could not find .env file", "error", err)
		} else {
			log.Info("Loaded .env file")
		}

		// Load .env.local overrides if it exists
		viper.SetConfigFile(".env.local")
		if err := viper.MergeInConfig(); err != nil {
			log.Debug("No .env.local file found", "error", err)
		} else {
			log.Info("Loaded .env.local overrides")
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, log.Err("Fatal error: could not unmarshal config", err)
	}

	log.Info("Successfully initialized config", "environment", config.Environment, "port", config.ServerPort)
	err := validateConfig(config, log)
	if err != nil {
		return Config{}, err
	}
	return ConfigInstance, nil
}

func GetConfig() Config {
	return ConfigInstance
}

func validateConfig(config Config, log logger.Logger) error {
	if config.ServerPort <= 0 {
		return log.Error(
			"Fatal error: invalid server port",
			"port", config.ServerPort,
		)
	}

	if config.DatabaseDriver == "" {
		config.DatabaseDriver = "postgres"
	}
	if config.DatabaseDriver != "postgres" && config.DatabaseDriver != "sqlite" {
		return log.Error(
			"Fatal error: unsupported database driver",
			"driver", config.DatabaseDriver,
		)
	}

	// Invoicing is optional but must be fully configured when enabled
	if config.OdooURL != "" {
		if config.OdooDatabase == "" {
			return log.Error("Fatal error: ODOO_DB required when ODOO_URL is set")
		}
		if config.OdooUsername == "" {
			return log.Error("Fatal error: ODOO_USERNAME required when ODOO_URL is set")
		}
		if config.OdooPassword == "" {
			return log.Error("Fatal error: ODOO_PASSWORD required when ODOO_URL is set")
		}
	}

	if config.SmtpHost != "" && config.SmtpFrom == "" {
		return log.Error("Fatal error: SMTP_FROM required when SMTP_HOST is set")
	}

	ConfigInstance = config
	return nil
}
