package engine

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"futures-monitor/internal/exchange"
	"futures-monitor/internal/present"
)

var log = logrus.WithField("module", "engine")

const (
	DefaultInterval   = 30 * time.Second
	defaultNudgeDelay = 500 * time.Millisecond
)

type State int

const (
	Idle State = iota
	Polling
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Snapshot is one fully presented refresh.
type Snapshot struct {
	Account     present.AccountView `json:"account"`
	Positions   present.Table       `json:"positions"`
	Orders      present.Table       `json:"orders"`
	Trades      present.Table       `json:"trades"`
	RefreshedAt time.Time           `json:"refreshed_at"`
}

// Sink receives the outcome of every refresh. Fail is called at most once,
// after which the runner stops.
type Sink interface {
	Render(snap Snapshot)
	Fail(err error)
}

// CycleObserver is told about every refresh, successful or not.
type CycleObserver interface {
	ObserveCycle(snap Snapshot, err error, elapsed time.Duration)
}

// Runner polls Source on a fixed interval and hands presented snapshots to
// Sink. Nudge, when set, triggers an early refresh; bursts of nudges within
// NudgeDelay collapse into one refresh.
type Runner struct {
	Source     exchange.Source
	Sink       Sink
	Locale     *present.Locale
	Location   *time.Location
	Interval   time.Duration
	Nudge      <-chan struct{}
	NudgeDelay time.Duration
	Observer   CycleObserver
	Now        func() time.Time

	mu    sync.Mutex
	state State
}

func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(state State) {
	r.mu.Lock()
	prev := r.state
	r.state = state
	r.mu.Unlock()
	if prev != state {
		log.WithFields(logrus.Fields{"from": prev.String(), "to": state.String()}).Info("runner state changed")
	}
}

// Run refreshes immediately and then after every interval or nudge until ctx
// is cancelled or a refresh fails. Cancellation returns ctx.Err(); a failed
// refresh is reported to Sink and returned. There is no retry.
func (r *Runner) Run(ctx context.Context) error {
	if r.Source == nil || r.Sink == nil {
		return errors.New("runner requires a source and a sink")
	}
	r.setState(Polling)
	defer r.setState(Stopped)

	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	for {
		if err := r.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		wait := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			wait.Stop()
			return ctx.Err()
		case <-wait.C:
		case <-r.Nudge:
			wait.Stop()
			if err := r.coalesce(ctx); err != nil {
				return err
			}
		}
	}
}

func (r *Runner) coalesce(ctx context.Context) error {
	delay := r.NudgeDelay
	if delay <= 0 {
		delay = defaultNudgeDelay
	}
	settle := time.NewTimer(delay)
	defer settle.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.Nudge:
		case <-settle.C:
			return nil
		}
	}
}

// RunOnce performs a single refresh and delivers it to Sink.
func (r *Runner) RunOnce(ctx context.Context) error {
	started := time.Now()
	snap, err := r.Cycle(ctx)
	elapsed := time.Since(started)
	if r.Observer != nil && ctx.Err() == nil {
		r.Observer.ObserveCycle(snap, err, elapsed)
	}
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		log.WithError(err).Error("refresh failed, stopping")
		r.setState(Stopped)
		r.Sink.Fail(err)
		return err
	}
	log.WithFields(logrus.Fields{
		"positions": len(snap.Positions.Rows),
		"orders":    len(snap.Orders.Rows),
		"trades":    len(snap.Trades.Rows),
		"elapsed":   elapsed.Round(time.Millisecond).String(),
	}).Debug("refresh complete")
	r.Sink.Render(snap)
	return nil
}

// Cycle fetches the four documents in order and presents them. It does not
// touch Sink.
func (r *Runner) Cycle(ctx context.Context) (Snapshot, error) {
	loc := r.Locale
	if loc == nil {
		loc = present.Chinese()
	}
	tz := r.Location
	if tz == nil {
		tz = time.Local
	}

	accountPayload, err := r.Source.AccountSummary(ctx)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "fetch account")
	}
	positionsPayload, err := r.Source.Positions(ctx)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "fetch positions")
	}
	ordersPayload, err := r.Source.OpenOrders(ctx)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "fetch open orders")
	}
	tradesPayload, err := r.Source.UserTrades(ctx)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "fetch user trades")
	}

	account, err := present.Account(accountPayload, loc)
	if err != nil {
		return Snapshot{}, err
	}
	positions, err := present.Positions(positionsPayload)
	if err != nil {
		return Snapshot{}, err
	}
	orders, err := present.Orders(ordersPayload)
	if err != nil {
		return Snapshot{}, err
	}
	trades, err := present.Trades(tradesPayload)
	if err != nil {
		return Snapshot{}, err
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return Snapshot{
		Account:     account,
		Positions:   present.PositionTable(positions, loc),
		Orders:      present.OrderTable(orders, loc, tz),
		Trades:      present.TradeTable(trades, loc, tz),
		RefreshedAt: now().In(tz),
	}, nil
}

// MultiSink fans a refresh out to several sinks in order.
func MultiSink(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) Render(snap Snapshot) {
	for _, s := range m {
		if s != nil {
			s.Render(snap)
		}
	}
}

func (m multiSink) Fail(err error) {
	for _, s := range m {
		if s != nil {
			s.Fail(err)
		}
	}
}
