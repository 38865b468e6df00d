package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	v.Set("rpc_url", "http://localhost:8545")

	cfg, err := FromViper(v)
	require.NoError(t, err)

	require.Equal(t, "http://localhost:8545", cfg.Ledger.RPCUrl)
	require.Equal(t, int64(4202), cfg.Ledger.ChainID)
	require.Equal(t, 0.005, cfg.Slippage)
	require.Equal(t, 15*time.Second, cfg.History.Interval)
	require.Equal(t, uint64(10000), cfg.History.BlockWindow)
	require.Equal(t, 3, cfg.History.FeedSize)
	require.Nil(t, cfg.Ledger.GasLimit)
	require.Empty(t, cfg.Tokens)
}

func TestFromViperTokens(t *testing.T) {
	v := viper.New()
	v.Set("gas_limit", 300000)
	v.Set("tokens", []map[string]interface{}{
		{"symbol": "ETH", "decimals": 18, "native": true, "pools": []string{"AFR"}},
		{"symbol": "AFR", "address": "0x0000000000000000000000000000000000000001", "decimals": 18, "pools": []string{"ETH"}},
	})

	cfg, err := FromViper(v)
	require.NoError(t, err)

	require.NotNil(t, cfg.Ledger.GasLimit)
	require.Equal(t, uint64(300000), *cfg.Ledger.GasLimit)
	require.Len(t, cfg.Tokens, 2)
	require.True(t, cfg.Tokens[0].Native)
	require.Equal(t, []string{"ETH"}, cfg.Tokens[1].Pools)
	require.Equal(t, uint8(18), cfg.Tokens[1].Decimals)
}

func TestFromViperValidation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  interface{}
	}{
		{"negative slippage", "slippage", -0.1},
		{"slippage of one", "slippage", 1.0},
		{"zero interval", "history.interval", time.Duration(0)},
		{"zero feed size", "history.feed_size", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.val)
			_, err := FromViper(v)
			require.Error(t, err)
		})
	}
}
