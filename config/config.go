package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// EVMNetwork holds the settings needed to send transactions on one chain
type EVMNetwork struct {
	ChainID    int64  `mapstructure:"chain_id"`
	RPCUrl     string `mapstructure:"rpc_url"`
	PrivateKey string `mapstructure:"private_key"`
	// Optional overrides; when nil the values are fetched from the node
	GasPrice *int64  `mapstructure:"gas_price"`
	GasLimit *uint64 `mapstructure:"gas_limit"`
}

// Config holds the application configuration
type Config struct {
	BaseURL         string
	TimeoutSeconds  int
	MaxRetries      uint64
	RetryIntervalMs int
	SlippagePercent float64
	Networks        map[string]EVMNetwork
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".odos-swap")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("base_url", "https://api.odos.xyz")
	viper.SetDefault("timeout_seconds", 30)
	viper.SetDefault("max_retries", 3)
	viper.SetDefault("retry_interval_ms", 500)
	viper.SetDefault("slippage_percent", 0.5)

	// Read from environment variables
	viper.SetEnvPrefix("ODOS_SWAP")
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		BaseURL:         viper.GetString("base_url"),
		TimeoutSeconds:  viper.GetInt("timeout_seconds"),
		MaxRetries:      viper.GetUint64("max_retries"),
		RetryIntervalMs: viper.GetInt("retry_interval_ms"),
		SlippagePercent: viper.GetFloat64("slippage_percent"),
		Networks:        make(map[string]EVMNetwork),
	}

	if err := viper.UnmarshalKey("networks", &cfg.Networks); err != nil {
		return nil, fmt.Errorf("invalid networks configuration: %w", err)
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base_url must not be empty")
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}

// Timeout returns the HTTP timeout as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryInterval returns the initial retry backoff interval as a duration
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.RetryIntervalMs) * time.Millisecond
}

// NetworkForChain finds the configured network entry for a chain ID
func (c *Config) NetworkForChain(chainID int64) (EVMNetwork, error) {
	for _, network := range c.Networks {
		if network.ChainID == chainID {
			return network, nil
		}
	}
	return EVMNetwork{}, fmt.Errorf("no network configured for chain %d. Add a networks entry to .odos-swap.yaml", chainID)
}
