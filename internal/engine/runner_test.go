package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futures-monitor/internal/core"
	"futures-monitor/internal/present"
)

const (
	accountBody   = `{"totalWalletBalance":"100.5","totalUnrealizedProfit":"-2.3","totalMarginBalance":"98.2"}`
	positionsBody = `[{"symbol":"BTCUSDT","positionAmt":"0.01","entryPrice":"50000","markPrice":"50100","unRealizedProfit":"1","leverage":"20","marginType":"cross"}]`
	ordersBody    = `[{"symbol":"BTCUSDT","side":"SELL","origQty":"0.01","price":"0","type":"STOP_MARKET","status":"NEW","triggerPrice":"48000","workingType":"MARK_PRICE","time":1700000000000}]`
)

type fakeSource struct {
	mu       sync.Mutex
	account  core.Payload
	trades   core.Payload
	fetchErr error
	calls    []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		account: core.NewPayload(200, []byte(accountBody)),
		trades:  core.NewPayload(200, []byte(`[]`)),
	}
}

func (f *fakeSource) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.fetchErr
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) AccountSummary(context.Context) (core.Payload, error) {
	if err := f.record("account"); err != nil {
		return core.Payload{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account, nil
}

func (f *fakeSource) Positions(context.Context) (core.Payload, error) {
	if err := f.record("positions"); err != nil {
		return core.Payload{}, err
	}
	return core.NewPayload(200, []byte(positionsBody)), nil
}

func (f *fakeSource) OpenOrders(context.Context) (core.Payload, error) {
	if err := f.record("orders"); err != nil {
		return core.Payload{}, err
	}
	return core.NewPayload(200, []byte(ordersBody)), nil
}

func (f *fakeSource) UserTrades(context.Context) (core.Payload, error) {
	if err := f.record("trades"); err != nil {
		return core.Payload{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trades, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordingSink struct {
	mu       sync.Mutex
	rendered []Snapshot
	failures []error
	renders  chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{renders: make(chan struct{}, 16)}
}

func (s *recordingSink) Render(snap Snapshot) {
	s.mu.Lock()
	s.rendered = append(s.rendered, snap)
	s.mu.Unlock()
	s.renders <- struct{}{}
}

func (s *recordingSink) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, err)
}

func (s *recordingSink) snapshot() ([]Snapshot, []error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Snapshot(nil), s.rendered...), append([]error(nil), s.failures...)
}

func TestCycleBuildsSnapshot(t *testing.T) {
	src := newFakeSource()
	refreshed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	r := &Runner{Source: src, Locale: present.Chinese(), Location: time.UTC, Now: func() time.Time { return refreshed }}

	snap, err := r.Cycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"account", "positions", "orders", "trades"}, src.calls)
	assert.Equal(t, "100.50 USDT", snap.Account.Metrics[0].Value)
	assert.Equal(t, "-2.30 USDT", snap.Account.Metrics[1].Value)
	assert.Equal(t, "98.20 USDT", snap.Account.Metrics[2].Value)
	require.Len(t, snap.Positions.Rows, 1)
	require.Len(t, snap.Orders.Rows, 1)
	assert.Equal(t, "标记价格 <= 48000.0000", snap.Orders.Rows[0][6])
	assert.True(t, snap.Trades.IsEmpty())
	assert.Equal(t, "无成交记录", snap.Trades.Empty)
	assert.Equal(t, refreshed, snap.RefreshedAt)
}

func TestRunStopsOnAccountRejection(t *testing.T) {
	src := newFakeSource()
	src.account = core.NewPayload(401, []byte(`{"code":-2015,"msg":"Invalid API-key, IP, or permissions for action."}`))
	sink := newRecordingSink()
	r := &Runner{Source: src, Sink: sink, Interval: time.Hour}

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAccountRejected)
	assert.Equal(t, Stopped, r.State())

	rendered, failures := sink.snapshot()
	assert.Empty(t, rendered)
	require.Len(t, failures, 1)
	assert.Equal(t, "账户信息错误: Invalid API-key, IP, or permissions for action.", present.FailureMessage(failures[0], present.Chinese()))
}

func TestRunStopsOnTransportError(t *testing.T) {
	src := newFakeSource()
	src.fetchErr = errors.New("dial tcp: connection refused")
	sink := newRecordingSink()
	r := &Runner{Source: src, Sink: sink, Interval: time.Hour}

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch account")
	assert.Equal(t, 1, src.callCount())

	_, failures := sink.snapshot()
	require.Len(t, failures, 1)
	assert.Contains(t, present.FailureMessage(failures[0], present.Chinese()), "发生错误：")
}

func TestRunStopsOnShapeError(t *testing.T) {
	src := &shapeSource{fakeSource: newFakeSource()}
	sink := newRecordingSink()
	r := &Runner{Source: src, Sink: sink, Interval: time.Hour}

	err := r.Run(context.Background())
	assert.ErrorIs(t, err, core.ErrUnexpectedPayload)
}

type shapeSource struct {
	*fakeSource
}

func (s *shapeSource) Positions(context.Context) (core.Payload, error) {
	return core.NewPayload(200, []byte(`{"msg":"not a list"}`)), nil
}

func TestRunRefreshesOnNudgeAndStopsOnCancel(t *testing.T) {
	src := newFakeSource()
	sink := newRecordingSink()
	nudge := make(chan struct{}, 1)
	r := &Runner{Source: src, Sink: sink, Interval: time.Hour, Nudge: nudge, NudgeDelay: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	waitRender(t, sink)
	assert.Equal(t, Polling, r.State())

	nudge <- struct{}{}
	waitRender(t, sink)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, Stopped, r.State())

	rendered, failures := sink.snapshot()
	assert.Len(t, rendered, 2)
	assert.Empty(t, failures)
}

func TestRunRefreshesOnInterval(t *testing.T) {
	src := newFakeSource()
	sink := newRecordingSink()
	r := &Runner{Source: src, Sink: sink, Interval: 20 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	waitRender(t, sink)
	waitRender(t, sink)
	waitRender(t, sink)
}

func TestRunRequiresSourceAndSink(t *testing.T) {
	r := &Runner{}
	assert.Error(t, r.Run(context.Background()))
	assert.Equal(t, Idle, r.State())
}

type countingObserver struct {
	mu     sync.Mutex
	ok     int
	failed int
}

func (o *countingObserver) ObserveCycle(_ Snapshot, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.failed++
		return
	}
	o.ok++
}

func TestRunOnceNotifiesObserverAndSinks(t *testing.T) {
	src := newFakeSource()
	first, second := newRecordingSink(), newRecordingSink()
	observer := &countingObserver{}
	r := &Runner{Source: src, Sink: MultiSink(first, second), Observer: observer}

	require.NoError(t, r.RunOnce(context.Background()))
	r1, _ := first.snapshot()
	r2, _ := second.snapshot()
	assert.Len(t, r1, 1)
	assert.Len(t, r2, 1)
	assert.Equal(t, 1, observer.ok)
}

func waitRender(t *testing.T, sink *recordingSink) {
	t.Helper()
	select {
	case <-sink.renders:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for render")
	}
}
