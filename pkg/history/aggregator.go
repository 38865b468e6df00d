package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"afri-swap/config"
	"afri-swap/pkg/ledger"
	"afri-swap/pkg/types"
)

const (
	DefaultBlockWindow = 10000
	DefaultFeedSize    = 3
	DefaultConcurrency = 8
)

// Source is the ledger read surface the aggregator needs
type Source interface {
	CurrentBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	TransferLogs(ctx context.Context, token common.Address, fromBlock, toBlock uint64, filter ledger.TransferFilter) ([]ledger.TransferLog, error)
}

// Feed is the recent activity shown to the user. It is rebuilt wholesale on
// every refresh.
type Feed struct {
	Events    []types.TransferEvent `json:"events"`
	HasUnseen bool                  `json:"has_unseen"`
	Total     int                   `json:"total"`
}

func (f Feed) clone() Feed {
	if f.Events != nil {
		f.Events = append([]types.TransferEvent(nil), f.Events...)
	}
	return f
}

// Aggregator rebuilds the transfer history of an account from Transfer logs
type Aggregator struct {
	ledger Source
	tokens []types.Token
	cfg    config.HistoryConfig
	logger *zap.Logger
}

// NewAggregator creates an aggregator over the given catalog tokens. Zero
// values in cfg fall back to the package defaults.
func NewAggregator(src Source, tokens []types.Token, cfg config.HistoryConfig, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BlockWindow == 0 {
		cfg.BlockWindow = DefaultBlockWindow
	}
	if cfg.FeedSize <= 0 {
		cfg.FeedSize = DefaultFeedSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Aggregator{
		ledger: src,
		tokens: tokens,
		cfg:    cfg,
		logger: logger.Named("history"),
	}
}

// Build runs the whole pipeline once. Any failure yields an empty feed and
// an error wrapping types.ErrHistoryUnavailable.
func (a *Aggregator) Build(ctx context.Context, account common.Address) (Feed, error) {
	events, err := a.collect(ctx, account)
	if err != nil {
		return Feed{}, fmt.Errorf("%w: %w", types.ErrHistoryUnavailable, err)
	}

	feed := Feed{
		HasUnseen: len(events) > 0,
		Total:     len(events),
	}
	n := min(len(events), a.cfg.FeedSize)
	feed.Events = append([]types.TransferEvent{}, events[:n]...)
	return feed, nil
}

// collect returns every deduplicated event of the window, newest block first
func (a *Aggregator) collect(ctx context.Context, account common.Address) ([]types.TransferEvent, error) {
	head, err := a.ledger.CurrentBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("current block: %w", err)
	}
	var from uint64
	if head > a.cfg.BlockWindow {
		from = head - a.cfg.BlockWindow
	}

	tokens := make([]types.Token, 0, len(a.tokens))
	for _, t := range a.tokens {
		// the native asset emits no Transfer logs
		if !t.Native && t.HasAddress() {
			tokens = append(tokens, t)
		}
	}

	a.logger.Debug("querying transfer logs",
		zap.String("account", account.Hex()),
		zap.Uint64("from_block", from),
		zap.Uint64("to_block", head),
		zap.Int("tokens", len(tokens)))

	sent := make([][]ledger.TransferLog, len(tokens))
	received := make([][]ledger.TransferLog, len(tokens))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)
	for i, token := range tokens {
		g.Go(func() error {
			logs, err := a.ledger.TransferLogs(gctx, token.Address, from, head, ledger.TransferFilter{From: &account})
			if err != nil {
				return fmt.Errorf("%s sent logs: %w", token.Symbol, err)
			}
			sent[i] = logs
			return nil
		})
		g.Go(func() error {
			logs, err := a.ledger.TransferLogs(gctx, token.Address, from, head, ledger.TransferFilter{To: &account})
			if err != nil {
				return fmt.Errorf("%s received logs: %w", token.Symbol, err)
			}
			received[i] = logs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[types.TransferKey]struct{})
	var events []types.TransferEvent
	add := func(e types.TransferEvent) {
		if _, dup := seen[e.Key()]; dup {
			return
		}
		seen[e.Key()] = struct{}{}
		events = append(events, e)
	}
	for i, token := range tokens {
		for _, l := range sent[i] {
			add(toEvent(token, l, types.Sent))
		}
		for _, l := range received[i] {
			add(toEvent(token, l, types.Received))
		}
	}

	if err := a.resolveTimestamps(ctx, events); err != nil {
		return nil, err
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].BlockNumber > events[j].BlockNumber
	})
	return events, nil
}

// resolveTimestamps looks up each distinct block once. Blocks the node does
// not know keep a nil timestamp.
func (a *Aggregator) resolveTimestamps(ctx context.Context, events []types.TransferEvent) error {
	var blocks []uint64
	index := make(map[uint64]int)
	for _, e := range events {
		if _, ok := index[e.BlockNumber]; !ok {
			index[e.BlockNumber] = len(blocks)
			blocks = append(blocks, e.BlockNumber)
		}
	}

	stamps := make([]*time.Time, len(blocks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)
	for i, number := range blocks {
		g.Go(func() error {
			ts, err := a.ledger.BlockTimestamp(gctx, number)
			if errors.Is(err, ledger.ErrNotFound) {
				a.logger.Debug("block timestamp unavailable", zap.Uint64("block", number))
				return nil
			}
			if err != nil {
				return fmt.Errorf("block %d timestamp: %w", number, err)
			}
			t := time.Unix(int64(ts), 0).UTC()
			stamps[i] = &t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range events {
		events[i].Timestamp = stamps[index[events[i].BlockNumber]]
	}
	return nil
}

func toEvent(token types.Token, l ledger.TransferLog, dir types.Direction) types.TransferEvent {
	counterparty := l.To
	if dir == types.Received {
		counterparty = l.From
	}
	return types.TransferEvent{
		Hash:         l.TxHash,
		BlockNumber:  l.BlockNumber,
		Direction:    dir,
		Counterparty: counterparty,
		Amount:       token.FromMinor(l.Value),
		TokenSymbol:  token.Symbol,
	}
}
