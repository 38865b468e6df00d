package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Ledger   LedgerConfig
	Slippage float64
	History  HistoryConfig
	Log      LogConfig
	Tokens   []TokenConfig
}

// LedgerConfig holds the node connection and contract addresses
type LedgerConfig struct {
	RPCUrl       string
	PrivateKey   string
	ChainID      int64
	SwapContract string
	PriceOracle  string
	RateLimit    int           // requests per second, 0 disables limiting
	MaxRetries   uint64        // retries for read calls
	PollInterval time.Duration // receipt polling interval
	GasLimit     *uint64
	GasPrice     *int64
}

// HistoryConfig tunes the transfer history poller
type HistoryConfig struct {
	Interval    time.Duration
	BlockWindow uint64
	FeedSize    int
	Concurrency int
}

// LogConfig configures the zap logger
type LogConfig struct {
	File        string
	Development bool
}

// TokenConfig is one entry of the token catalog
type TokenConfig struct {
	Symbol   string   `mapstructure:"symbol"`
	Address  string   `mapstructure:"address"`
	Decimals uint8    `mapstructure:"decimals"`
	Native   bool     `mapstructure:"native"`
	Pools    []string `mapstructure:"pools"`
}

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".afri-swap")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults(viper.GetViper())

	// Read from environment variables
	viper.SetEnvPrefix("AFRI_SWAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	cfg, err := FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}

	// Validate RPC endpoint
	if cfg.Ledger.RPCUrl == "" {
		return nil, fmt.Errorf("RPC URL not found. Please set AFRI_SWAP_RPC_URL environment variable or create a .afri-swap.yaml config file")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("chain_id", 4202)
	v.SetDefault("slippage", 0.005)
	v.SetDefault("rpc.rate_limit", 20)
	v.SetDefault("rpc.max_retries", 3)
	v.SetDefault("confirm.poll_interval", 2*time.Second)
	v.SetDefault("history.interval", 15*time.Second)
	v.SetDefault("history.block_window", 10000)
	v.SetDefault("history.feed_size", 3)
	v.SetDefault("history.concurrency", 8)
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	cfg := &Config{
		Ledger: LedgerConfig{
			RPCUrl:       v.GetString("rpc_url"),
			PrivateKey:   v.GetString("private_key"),
			ChainID:      v.GetInt64("chain_id"),
			SwapContract: v.GetString("swap_contract"),
			PriceOracle:  v.GetString("price_oracle"),
			RateLimit:    v.GetInt("rpc.rate_limit"),
			MaxRetries:   v.GetUint64("rpc.max_retries"),
			PollInterval: v.GetDuration("confirm.poll_interval"),
		},
		Slippage: v.GetFloat64("slippage"),
		History: HistoryConfig{
			Interval:    v.GetDuration("history.interval"),
			BlockWindow: v.GetUint64("history.block_window"),
			FeedSize:    v.GetInt("history.feed_size"),
			Concurrency: v.GetInt("history.concurrency"),
		},
		Log: LogConfig{
			File:        v.GetString("log.file"),
			Development: v.GetBool("log.development"),
		},
	}

	if v.IsSet("gas_limit") {
		limit := v.GetUint64("gas_limit")
		cfg.Ledger.GasLimit = &limit
	}
	if v.IsSet("gas_price") {
		price := v.GetInt64("gas_price")
		cfg.Ledger.GasPrice = &price
	}

	if err := v.UnmarshalKey("tokens", &cfg.Tokens); err != nil {
		return nil, fmt.Errorf("invalid tokens configuration: %w", err)
	}

	if cfg.Slippage < 0 || cfg.Slippage >= 1 {
		return nil, fmt.Errorf("slippage must be in [0, 1), got %v", cfg.Slippage)
	}
	if cfg.History.Interval <= 0 {
		return nil, fmt.Errorf("history interval must be positive")
	}
	if cfg.History.FeedSize <= 0 {
		return nil, fmt.Errorf("history feed size must be positive")
	}

	return cfg, nil
}
