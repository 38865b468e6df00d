package history

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"afri-swap/pkg/types"
)

type fakeBuilder struct {
	calls   atomic.Int32
	mu      sync.Mutex
	feeds   map[common.Address]Feed
	err     error
	gate    chan struct{} // when set, Build waits on it
	started chan struct{}
	onBuild func()
}

func (b *fakeBuilder) Build(ctx context.Context, acc common.Address) (Feed, error) {
	b.calls.Add(1)
	if b.onBuild != nil {
		b.onBuild()
	}
	if b.gate != nil {
		select {
		case b.started <- struct{}{}:
		default:
		}
		select {
		case <-b.gate:
		case <-ctx.Done():
			return Feed{}, ctx.Err()
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return Feed{}, b.err
	}
	return b.feeds[acc], nil
}

func sampleFeed(hash string) Feed {
	return Feed{
		Events:    []types.TransferEvent{{Hash: common.HexToHash(hash), TokenSymbol: "AFR"}},
		HasUnseen: true,
		Total:     1,
	}
}

func TestPollerConnectRefreshesImmediately(t *testing.T) {
	b := &fakeBuilder{feeds: map[common.Address]Feed{account: sampleFeed("0x01")}}
	p := NewPoller(b, time.Hour, nil)
	defer p.Disconnect()

	p.Connect(account)

	select {
	case u := <-p.Updates():
		require.NoError(t, u.Err)
		require.Equal(t, sampleFeed("0x01"), u.Feed)
	case <-time.After(2 * time.Second):
		t.Fatal("no feed after connect")
	}
	require.Equal(t, sampleFeed("0x01"), p.Feed())
}

func TestPollerPollsOnInterval(t *testing.T) {
	b := &fakeBuilder{feeds: map[common.Address]Feed{}}
	p := NewPoller(b, 10*time.Millisecond, nil)

	p.Connect(account)
	require.Eventually(t, func() bool { return b.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	p.Disconnect()
	after := b.calls.Load()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, after, b.calls.Load())
}

func TestPollerDisconnectClearsFeed(t *testing.T) {
	b := &fakeBuilder{feeds: map[common.Address]Feed{account: sampleFeed("0x01")}}
	p := NewPoller(b, time.Hour, nil)

	p.Connect(account)
	<-p.Updates()
	p.Disconnect()

	require.Empty(t, p.Feed().Events)
	require.False(t, p.Feed().HasUnseen)
	require.NoError(t, p.Refresh(context.Background()))
	require.Empty(t, p.Feed().Events)
}

func TestPollerFailureClearsFeed(t *testing.T) {
	b := &fakeBuilder{feeds: map[common.Address]Feed{account: sampleFeed("0x01")}}
	p := NewPoller(b, time.Hour, nil)
	defer p.Disconnect()

	p.Connect(account)
	<-p.Updates()

	boom := errors.New("boom")
	b.mu.Lock()
	b.err = boom
	b.mu.Unlock()

	require.ErrorIs(t, p.Refresh(context.Background()), boom)
	require.Empty(t, p.Feed().Events)
	require.False(t, p.Feed().HasUnseen)
	require.ErrorIs(t, p.Err(), boom)

	u := <-p.Updates()
	require.ErrorIs(t, u.Err, boom)
	require.Empty(t, u.Feed.Events)

	b.mu.Lock()
	b.err = nil
	b.mu.Unlock()

	require.NoError(t, p.Refresh(context.Background()))
	require.NoError(t, p.Err())
	u = <-p.Updates()
	require.NoError(t, u.Err)
	require.Equal(t, sampleFeed("0x01"), u.Feed)
}

func TestPollerConcurrentConnectLeavesOneLoop(t *testing.T) {
	b := &fakeBuilder{feeds: map[common.Address]Feed{}}
	p := NewPoller(b, 5*time.Millisecond, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Connect(account)
		}()
	}
	wg.Wait()

	p.Disconnect()
	after := b.calls.Load()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, after, b.calls.Load())
}

func TestPollerMarkSeen(t *testing.T) {
	b := &fakeBuilder{feeds: map[common.Address]Feed{account: sampleFeed("0x01")}}
	p := NewPoller(b, time.Hour, nil)
	defer p.Disconnect()

	p.Connect(account)
	<-p.Updates()

	p.MarkSeen()
	feed := p.Feed()
	require.False(t, feed.HasUnseen)
	require.Len(t, feed.Events, 1)
}

func TestPollerFeedIsACopy(t *testing.T) {
	b := &fakeBuilder{feeds: map[common.Address]Feed{account: sampleFeed("0x01")}}
	p := NewPoller(b, time.Hour, nil)
	defer p.Disconnect()

	p.Connect(account)
	<-p.Updates()

	feed := p.Feed()
	feed.Events[0].TokenSymbol = "XXX"
	require.Equal(t, "AFR", p.Feed().Events[0].TokenSymbol)
}

func TestPollerSkipsOverlappingRefresh(t *testing.T) {
	b := &fakeBuilder{
		feeds:   map[common.Address]Feed{account: sampleFeed("0x01")},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	p := NewPoller(b, time.Hour, nil)
	defer p.Disconnect()

	p.Connect(account)
	<-b.started

	// the tick started by Connect is still running
	require.NoError(t, p.Refresh(context.Background()))
	require.Equal(t, int32(1), b.calls.Load())

	close(b.gate)
	<-p.Updates()
	require.Equal(t, sampleFeed("0x01"), p.Feed())
}

func TestPollerDiscardsStaleAccount(t *testing.T) {
	other := common.HexToAddress("0x07e4")
	b := &fakeBuilder{feeds: map[common.Address]Feed{account: sampleFeed("0x01")}}
	p := NewPoller(b, time.Hour, nil)

	p.mu.Lock()
	p.account, p.connected = account, true
	p.mu.Unlock()

	// the user switches account while the build is in progress
	b.onBuild = func() {
		p.mu.Lock()
		p.account = other
		p.mu.Unlock()
	}

	require.NoError(t, p.Refresh(context.Background()))
	require.Empty(t, p.Feed().Events)
	select {
	case <-p.Updates():
		t.Fatal("stale feed was published")
	default:
	}
}

func TestPollerReconnectSwitchesAccount(t *testing.T) {
	other := common.HexToAddress("0x07e4")
	b := &fakeBuilder{
		feeds: map[common.Address]Feed{
			account: sampleFeed("0x01"),
			other:   sampleFeed("0x02"),
		},
	}
	p := NewPoller(b, time.Hour, nil)
	defer p.Disconnect()

	p.Connect(account)
	<-p.Updates()

	p.Connect(other)
	select {
	case u := <-p.Updates():
		require.Equal(t, sampleFeed("0x02"), u.Feed)
	case <-time.After(2 * time.Second):
		t.Fatal("no feed after reconnect")
	}
	require.Equal(t, sampleFeed("0x02"), p.Feed())
}
