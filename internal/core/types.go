package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

type OrderType string

type WorkingType string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

const (
	Market           OrderType = "MARKET"
	Limit            OrderType = "LIMIT"
	Stop             OrderType = "STOP"
	StopMarket       OrderType = "STOP_MARKET"
	TakeProfit       OrderType = "TAKE_PROFIT"
	TakeProfitMarket OrderType = "TAKE_PROFIT_MARKET"
)

const (
	MarkPrice     WorkingType = "MARK_PRICE"
	ContractPrice WorkingType = "CONTRACT_PRICE"
)

// IsTakeProfit reports whether the order type triggers on a favourable move.
func (t OrderType) IsTakeProfit() bool {
	return t == TakeProfit || t == TakeProfitMarket
}

// IsStop reports whether the order type triggers on an adverse move.
func (t OrderType) IsStop() bool {
	return t == Stop || t == StopMarket
}

type AccountSummary struct {
	WalletBalance    decimal.Decimal `json:"wallet_balance"`
	UnrealizedProfit decimal.Decimal `json:"unrealized_profit"`
	MarginBalance    decimal.Decimal `json:"margin_balance"`
}

type Position struct {
	Symbol           string
	Amount           decimal.Decimal
	EntryPrice       decimal.Decimal
	MarkPrice        decimal.Decimal
	UnrealizedProfit decimal.Decimal
	Leverage         int
	MarginType       string
}

// Order keeps quantity and prices as the exchange sent them; they are only
// displayed, never used in arithmetic.
type Order struct {
	Symbol       string
	Side         Side
	Quantity     string
	Price        string
	Type         OrderType
	Status       string
	TriggerPrice string
	WorkingType  WorkingType
	CreatedAt    time.Time
}

type Trade struct {
	Symbol      string
	Side        Side
	Quantity    string
	Price       string
	RealizedPnl string
	Time        time.Time
}
