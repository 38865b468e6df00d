package cmd

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"afri-swap/config"
	"afri-swap/pkg/catalog"
	"afri-swap/pkg/ledger"
	"afri-swap/pkg/logger"
)

// runtime bundles what every command needs
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	catalog *catalog.Catalog
	ledger  *ledger.EVMClient
	json    bool
	verbose bool
}

// setup loads configuration, the logger and the token catalog. The ledger
// connection is opened only when withLedger is set.
func setup(cmd *cobra.Command, withLedger bool) (*runtime, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.Log, verbose)

	cat, err := catalog.FromConfig(cfg.Tokens)
	if err != nil {
		return nil, fmt.Errorf("invalid token catalog: %w", err)
	}

	rt := &runtime{
		cfg:     cfg,
		logger:  log,
		catalog: cat,
		json:    jsonOutput,
		verbose: verbose,
	}

	if withLedger {
		client, err := ledger.NewEVMClient(cfg.Ledger, log)
		if err != nil {
			return nil, err
		}
		rt.ledger = client
	}

	return rt, nil
}

func (r *runtime) Close() {
	if r.ledger != nil {
		r.ledger.Close()
	}
	_ = r.logger.Sync()
}

// startSpinner shows a spinner unless the output is JSON. The returned
// function stops it.
func (r *runtime) startSpinner(suffix string) func() {
	if r.json {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + suffix
	s.Start()
	return s.Stop
}

// accountArg resolves an account argument, defaulting to the signer
func (r *runtime) accountArg(args []string) (common.Address, error) {
	if len(args) > 0 {
		if !common.IsHexAddress(args[0]) {
			return common.Address{}, fmt.Errorf("invalid account address: %s", args[0])
		}
		return common.HexToAddress(args[0]), nil
	}
	if r.ledger != nil && r.ledger.Account() != (common.Address{}) {
		return r.ledger.Account(), nil
	}
	return common.Address{}, fmt.Errorf("account address is required (or configure AFRI_SWAP_PRIVATE_KEY)")
}
