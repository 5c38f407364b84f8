package present

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"futures-monitor/internal/core"
)

// positionRisk defers every field but the amount: inactive entries are
// dropped before their prices and leverage are parsed.
type positionRisk struct {
	Symbol           string          `json:"symbol"`
	PositionAmt      decimal.Decimal `json:"positionAmt"`
	EntryPrice       json.RawMessage `json:"entryPrice"`
	MarkPrice        json.RawMessage `json:"markPrice"`
	UnRealizedProfit json.RawMessage `json:"unRealizedProfit"`
	Leverage         json.RawMessage `json:"leverage"`
	MarginType       string          `json:"marginType"`
}

// Positions keeps the entries with a non-zero amount. Unlike orders and
// trades, a payload that is not an array is an error.
func Positions(p core.Payload) ([]core.Position, error) {
	items, isArray, err := decodeList[positionRisk](p)
	if !isArray {
		return nil, fmt.Errorf("position risk: %w", core.ErrUnexpectedPayload)
	}
	if err != nil {
		return nil, fmt.Errorf("position risk: %w", err)
	}
	out := make([]core.Position, 0, len(items))
	for _, item := range items {
		if item.PositionAmt.IsZero() {
			continue
		}
		pos, err := item.position()
		if err != nil {
			return nil, fmt.Errorf("position %s: %w", item.Symbol, err)
		}
		out = append(out, pos)
	}
	return out, nil
}

func (r positionRisk) position() (core.Position, error) {
	entry, err := rawDecimal("entryPrice", r.EntryPrice)
	if err != nil {
		return core.Position{}, err
	}
	mark, err := rawDecimal("markPrice", r.MarkPrice)
	if err != nil {
		return core.Position{}, err
	}
	unrealized, err := rawDecimal("unRealizedProfit", r.UnRealizedProfit)
	if err != nil {
		return core.Position{}, err
	}
	leverage, err := strconv.Atoi(strings.Trim(string(r.Leverage), `"`))
	if err != nil {
		return core.Position{}, fmt.Errorf("leverage %s: %w", r.Leverage, err)
	}
	return core.Position{
		Symbol:           r.Symbol,
		Amount:           r.PositionAmt,
		EntryPrice:       entry,
		MarkPrice:        mark,
		UnrealizedProfit: unrealized,
		Leverage:         leverage,
		MarginType:       r.MarginType,
	}, nil
}

func rawDecimal(field string, raw json.RawMessage) (decimal.Decimal, error) {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}
