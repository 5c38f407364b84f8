package present

import (
	"fmt"
	"time"

	"futures-monitor/internal/core"
)

type userTrade struct {
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	Qty         string `json:"qty"`
	Price       string `json:"price"`
	RealizedPnl string `json:"realizedPnl"`
	Time        int64  `json:"time"`
}

func Trades(p core.Payload) ([]core.Trade, error) {
	items, _, err := decodeList[userTrade](p)
	if err != nil {
		return nil, fmt.Errorf("user trades: %w", err)
	}
	out := make([]core.Trade, 0, len(items))
	for _, item := range items {
		out = append(out, core.Trade{
			Symbol:      item.Symbol,
			Side:        core.Side(item.Side),
			Quantity:    item.Qty,
			Price:       item.Price,
			RealizedPnl: item.RealizedPnl,
			Time:        time.UnixMilli(item.Time),
		})
	}
	return out, nil
}
