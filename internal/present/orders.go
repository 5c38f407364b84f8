package present

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"futures-monitor/internal/core"
)

// NoCondition is shown when an order carries no usable trigger price.
const NoCondition = "-"

type openOrder struct {
	Symbol       string `json:"symbol"`
	Side         string `json:"side"`
	OrigQty      string `json:"origQty"`
	Price        string `json:"price"`
	Type         string `json:"type"`
	Status       string `json:"status"`
	TriggerPrice string `json:"triggerPrice"`
	StopPrice    string `json:"stopPrice"`
	WorkingType  string `json:"workingType"`
	Time         int64  `json:"time"`
}

// Orders decodes open orders. A payload that is not an array yields no orders.
func Orders(p core.Payload) ([]core.Order, error) {
	items, _, err := decodeList[openOrder](p)
	if err != nil {
		return nil, fmt.Errorf("open orders: %w", err)
	}
	out := make([]core.Order, 0, len(items))
	for _, item := range items {
		trigger := item.TriggerPrice
		if strings.TrimSpace(trigger) == "" {
			trigger = item.StopPrice
		}
		out = append(out, core.Order{
			Symbol:       item.Symbol,
			Side:         core.Side(item.Side),
			Quantity:     item.OrigQty,
			Price:        item.Price,
			Type:         core.OrderType(item.Type),
			Status:       item.Status,
			TriggerPrice: trigger,
			WorkingType:  core.WorkingType(item.WorkingType),
			CreatedAt:    time.UnixMilli(item.Time),
		})
	}
	return out, nil
}

// TriggerCondition describes when a conditional order fires, for example
// "标记价格 <= 50000.1000". Orders without a positive trigger price get
// NoCondition.
func TriggerCondition(o core.Order, loc *Locale) string {
	price, err := strconv.ParseFloat(strings.TrimSpace(o.TriggerPrice), 64)
	if err != nil || math.IsNaN(price) || price <= 0 {
		return NoCondition
	}
	op := "-"
	switch {
	case o.Type.IsTakeProfit():
		op = "<="
		if o.Side == core.Sell {
			op = ">="
		}
	case o.Type.IsStop():
		op = ">="
		if o.Side == core.Sell {
			op = "<="
		}
	}
	label := loc.LastPriceLabel
	if o.WorkingType == core.MarkPrice {
		label = loc.MarkPriceLabel
	}
	return fmt.Sprintf("%s %s %.4f", label, op, price)
}
