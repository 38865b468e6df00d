package history

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// DefaultInterval between two refreshes of a connected account
const DefaultInterval = 15 * time.Second

// Builder produces a feed for an account
type Builder interface {
	Build(ctx context.Context, account common.Address) (Feed, error)
}

// Update is the outcome of one refresh. Err is set when the refresh failed,
// in which case Feed is empty.
type Update struct {
	Feed Feed
	Err  error
}

// Poller keeps the feed of the connected account fresh
type Poller struct {
	builder  Builder
	interval time.Duration
	logger   *zap.Logger

	// lifecycle serializes Connect and Disconnect
	lifecycle sync.Mutex

	mu        sync.Mutex
	account   common.Address
	connected bool
	feed      Feed
	err       error
	cancel    context.CancelFunc
	done      chan struct{}

	refreshing atomic.Bool
	updates    chan Update
}

// NewPoller creates a disconnected poller
func NewPoller(builder Builder, interval time.Duration, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		builder:  builder,
		interval: interval,
		logger:   logger.Named("poller"),
		updates:  make(chan Update, 1),
	}
}

// Connect starts polling for account, replacing any previous account. The
// first refresh runs immediately.
func (p *Poller) Connect(account common.Address) {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	p.disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.account = account
	p.connected = true
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	p.logger.Info("connected", zap.String("account", account.Hex()))
	go p.run(ctx, done)
}

// Disconnect stops polling and clears the feed
func (p *Poller) Disconnect() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	p.disconnect()
}

func (p *Poller) disconnect() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.connected = false
	p.account = common.Address{}
	p.feed = Feed{}
	p.err = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
		p.logger.Info("disconnected")
	}
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("history refresh failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Refresh rebuilds the feed once. A refresh already in progress makes this
// call a no-op. Results for an account that is no longer connected are
// dropped. A failed build clears the feed.
func (p *Poller) Refresh(ctx context.Context) error {
	if !p.refreshing.CompareAndSwap(false, true) {
		p.logger.Debug("refresh already in progress, skipping")
		return nil
	}
	feed, stored, err := p.rebuild(ctx)
	p.refreshing.Store(false)

	if stored {
		p.publish(Update{Feed: feed, Err: err})
	}
	return err
}

func (p *Poller) rebuild(ctx context.Context) (Feed, bool, error) {
	p.mu.Lock()
	account, connected := p.account, p.connected
	p.mu.Unlock()
	if !connected {
		return Feed{}, false, nil
	}

	feed, err := p.builder.Build(ctx, account)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected || p.account != account {
		p.logger.Debug("discarding feed of stale account", zap.String("account", account.Hex()))
		return Feed{}, false, nil
	}
	p.feed = feed
	p.err = err
	return feed.clone(), true, err
}

// MarkSeen clears the unseen flag of the current feed
func (p *Poller) MarkSeen() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.feed.HasUnseen = false
}

// Feed returns a copy of the current feed
func (p *Poller) Feed() Feed {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.feed.clone()
}

// Err returns the error of the last refresh, nil when it succeeded
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Updates delivers the outcome of each refresh. Only the latest undelivered
// update is kept.
func (p *Poller) Updates() <-chan Update {
	return p.updates
}

func (p *Poller) publish(u Update) {
	for {
		select {
		case p.updates <- u:
			return
		default:
		}
		select {
		case <-p.updates:
		default:
		}
	}
}
