package present

import (
	"encoding/json"
	"strconv"
	"time"

	"futures-monitor/internal/core"
)

const (
	KeyPositions = "positions"
	KeyOrders    = "orders"
	KeyTrades    = "trades"
)

const timeLayout = "2006-01-02 15:04:05"

// Table is a display-ready grid. Key is a stable identifier used for page
// state; Label is the localized name shown next to page controls.
type Table struct {
	Key     string     `json:"key"`
	Title   string     `json:"title"`
	Label   string     `json:"label"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Empty   string     `json:"empty"`
}

func (t Table) IsEmpty() bool {
	return len(t.Rows) == 0
}

func PositionTable(positions []core.Position, loc *Locale) Table {
	rows := make([][]string, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, []string{
			p.Symbol,
			p.Amount.String(),
			p.EntryPrice.String(),
			p.MarkPrice.String(),
			p.UnrealizedProfit.String(),
			strconv.Itoa(p.Leverage),
			p.MarginType,
		})
	}
	return Table{
		Key:     KeyPositions,
		Title:   loc.PositionsHeading,
		Label:   loc.PositionsLabel,
		Columns: loc.PositionColumns,
		Rows:    rows,
		Empty:   loc.NoPositions,
	}
}

func OrderTable(orders []core.Order, loc *Locale, tz *time.Location) Table {
	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []string{
			o.Symbol,
			string(o.Side),
			o.Quantity,
			o.Price,
			loc.OrderTypeLabel(o.Type),
			o.Status,
			TriggerCondition(o, loc),
			FormatTime(o.CreatedAt, tz),
		})
	}
	return Table{
		Key:     KeyOrders,
		Title:   loc.OrdersHeading,
		Label:   loc.OrdersLabel,
		Columns: loc.OrderColumns,
		Rows:    rows,
		Empty:   loc.NoOrders,
	}
}

func TradeTable(trades []core.Trade, loc *Locale, tz *time.Location) Table {
	rows := make([][]string, 0, len(trades))
	for _, tr := range trades {
		rows = append(rows, []string{
			tr.Symbol,
			string(tr.Side),
			tr.Quantity,
			tr.Price,
			tr.RealizedPnl,
			FormatTime(tr.Time, tz),
		})
	}
	return Table{
		Key:     KeyTrades,
		Title:   loc.TradesHeading,
		Label:   loc.TradesLabel,
		Columns: loc.TradeColumns,
		Rows:    rows,
		Empty:   loc.NoTrades,
	}
}

// FormatTime renders a timestamp the way every table does.
func FormatTime(t time.Time, tz *time.Location) string {
	if tz == nil {
		tz = time.Local
	}
	return t.In(tz).Format(timeLayout)
}

// decodeList decodes an array payload. ok is false when the payload is not
// an array, which callers treat as empty or as a shape error.
func decodeList[T any](p core.Payload) ([]T, bool, error) {
	if !p.IsArray() {
		return nil, false, nil
	}
	var items []T
	if err := json.Unmarshal(p.Body, &items); err != nil {
		return nil, true, err
	}
	return items, true, nil
}
