package exchange

import (
	"context"

	"futures-monitor/internal/core"
)

// Source fetches the four documents the dashboard renders. Payload shape
// problems are reported inside the payload; an error means the request never
// completed.
type Source interface {
	Name() string
	AccountSummary(ctx context.Context) (core.Payload, error)
	Positions(ctx context.Context) (core.Payload, error)
	OpenOrders(ctx context.Context) (core.Payload, error)
	UserTrades(ctx context.Context) (core.Payload, error)
}
