package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	v := viper.New()

	def := DefaultServiceConfig()
	v.SetDefault("service.host", def.Host)
	v.SetDefault("service.port", def.Port)
	v.SetDefault("service.max_connections", def.MaxConnections)
	v.SetDefault("service.request_timeout", def.RequestTimeout.String())
	v.SetDefault("service.rules_file", def.RulesFile)
	v.SetDefault("service.watch_rules", def.WatchRules)
	v.SetDefault("service.watch_debounce", def.WatchDebounce.String())
	v.SetDefault("service.metrics_addr", def.MetricsAddr)
	v.SetDefault("service.data_dir", def.DataDir)

	// DK_SERVICE_PORT overrides service.port
	v.SetEnvPrefix("DK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets are environment-only
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &ServiceConfig{
		Host:           v.GetString("service.host"),
		Port:           v.GetInt("service.port"),
		MaxConnections: v.GetInt("service.max_connections"),
		RequestTimeout: v.GetDuration("service.request_timeout"),
		RulesFile:      v.GetString("service.rules_file"),
		WatchRules:     v.GetBool("service.watch_rules"),
		WatchDebounce:  v.GetDuration("service.watch_debounce"),
		MetricsAddr:    v.GetString("service.metrics_addr"),
		DataDir:        v.GetString("service.data_dir"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range and positive connection, timeout and debounce values.
func validateConfig(cfg *ServiceConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.MaxConnections <= 0 {
		return fmt.Errorf("max_connections must be positive, got %d", cfg.MaxConnections)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if cfg.WatchRules && cfg.WatchDebounce <= 0 {
		return fmt.Errorf("watch_debounce must be positive when watch_rules is set, got %v", cfg.WatchDebounce)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("hmac_secret") || v.InConfig("service.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use DK_HMAC_SECRET environment variable)")
	}
	return nil
}
