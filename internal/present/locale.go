package present

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"futures-monitor/internal/core"
)

// Locale holds every user-facing string of the dashboard for one language.
type Locale struct {
	Tag language.Tag

	Title          string
	AccountHeading string
	WalletBalance  string
	Unrealized     string
	MarginBalance  string

	PositionsHeading string
	PositionsLabel   string
	PositionColumns  []string
	NoPositions      string

	OrdersHeading string
	OrdersLabel   string
	OrderColumns  []string
	NoOrders      string

	TradesHeading string
	TradesLabel   string
	TradeColumns  []string
	NoTrades      string

	MarkPriceLabel string
	LastPriceLabel string
	OrderTypes     map[core.OrderType]string

	Unparsable    string
	AccountErrFmt string
	ErrorFmt      string
	RefreshedFmt  string
	PageSelectFmt string
	PageFmt       string
	IdleHint      string
	StoppedHint   string
	KeysHint      string

	printer *message.Printer
}

var zhCN = Locale{
	Tag:              language.SimplifiedChinese,
	Title:            "📊 Binance USDT 合约账户监控",
	AccountHeading:   "💼 当前账户汇总",
	WalletBalance:    "钱包余额",
	Unrealized:       "未实现盈亏",
	MarginBalance:    "保证金余额",
	PositionsHeading: "📈 当前持仓",
	PositionsLabel:   "当前持仓",
	PositionColumns:  []string{"交易对", "持仓数量", "开仓均价", "标记价格", "未实现盈亏", "杠杆", "保证金类型"},
	NoPositions:      "无当前持仓",
	OrdersHeading:    "📋 当前委托订单（含中文触发条件）",
	OrdersLabel:      "当前委托",
	OrderColumns:     []string{"交易对", "方向", "数量", "价格", "类型", "状态", "触发条件", "下单时间"},
	NoOrders:         "无当前委托",
	TradesHeading:    "🕒 最近成交记录（仓位历史）",
	TradesLabel:      "成交记录",
	TradeColumns:     []string{"交易对", "方向", "数量", "价格", "已实现盈亏", "时间"},
	NoTrades:         "无成交记录",
	MarkPriceLabel:   "标记价格",
	LastPriceLabel:   "最新价格",
	OrderTypes: map[core.OrderType]string{
		core.StopMarket:       "市价止损",
		core.TakeProfitMarket: "市价止盈",
		core.Stop:             "限价止损",
		core.TakeProfit:       "限价止盈",
		core.Limit:            "限价委托",
		core.Market:           "市价委托",
	},
	Unparsable:    "无法解析响应",
	AccountErrFmt: "账户信息错误: %s",
	ErrorFmt:      "发生错误：%s",
	RefreshedFmt:  "⏱ 最后刷新：%s",
	PageSelectFmt: "页码选择 - %s",
	PageFmt:       "第 %d / %d 页",
	IdleHint:      "请先提供 API Key 和 Secret Key 后开始",
	StoppedHint:   "刷新已停止，按 q 退出",
	KeysHint:      "tab 切换表格 · ←/→ 翻页 · q 退出",
}

var english = Locale{
	Tag:              language.English,
	Title:            "📊 Binance USDT-M Futures Monitor",
	AccountHeading:   "💼 Account summary",
	WalletBalance:    "Wallet balance",
	Unrealized:       "Unrealized PnL",
	MarginBalance:    "Margin balance",
	PositionsHeading: "📈 Open positions",
	PositionsLabel:   "Positions",
	PositionColumns:  []string{"Symbol", "Amount", "Entry price", "Mark price", "Unrealized PnL", "Leverage", "Margin type"},
	NoPositions:      "No open positions",
	OrdersHeading:    "📋 Open orders (with trigger conditions)",
	OrdersLabel:      "Open orders",
	OrderColumns:     []string{"Symbol", "Side", "Quantity", "Price", "Type", "Status", "Trigger", "Created"},
	NoOrders:         "No open orders",
	TradesHeading:    "🕒 Recent trades (position history)",
	TradesLabel:      "Trades",
	TradeColumns:     []string{"Symbol", "Side", "Quantity", "Price", "Realized PnL", "Time"},
	NoTrades:         "No trade history",
	MarkPriceLabel:   "Mark price",
	LastPriceLabel:   "Last price",
	OrderTypes: map[core.OrderType]string{
		core.StopMarket:       "Stop market",
		core.TakeProfitMarket: "Take profit market",
		core.Stop:             "Stop limit",
		core.TakeProfit:       "Take profit limit",
		core.Limit:            "Limit",
		core.Market:           "Market",
	},
	Unparsable:    "unable to parse response",
	AccountErrFmt: "Account error: %s",
	ErrorFmt:      "Error: %s",
	RefreshedFmt:  "⏱ Last refreshed: %s",
	PageSelectFmt: "Page - %s",
	PageFmt:       "page %d / %d",
	IdleHint:      "Provide an API key and secret key to start",
	StoppedHint:   "Refresh stopped, press q to quit",
	KeysHint:      "tab switch table · ←/→ page · q quit",
}

var matcher = language.NewMatcher([]language.Tag{language.SimplifiedChinese, language.English})

// LocaleFor picks the closest supported locale for a BCP 47 tag. Anything
// unparsable or unmatched falls back to Simplified Chinese.
func LocaleFor(tag string) *Locale {
	parsed, err := language.Parse(tag)
	if err != nil {
		return Chinese()
	}
	_, idx, confidence := matcher.Match(parsed)
	if confidence == language.No || idx != 1 {
		return Chinese()
	}
	return English()
}

func Chinese() *Locale {
	loc := zhCN
	loc.printer = message.NewPrinter(loc.Tag)
	return &loc
}

func English() *Locale {
	loc := english
	loc.printer = message.NewPrinter(loc.Tag)
	return &loc
}

// Money formats an amount with two decimals and no digit grouping, e.g.
// "12345.68 USDT".
func (l *Locale) Money(amount decimal.Decimal) string {
	return amount.StringFixed(2) + " USDT"
}

// Sprintf formats one of the locale's message templates.
func (l *Locale) Sprintf(format string, args ...any) string {
	return l.printer.Sprintf(format, args...)
}

// OrderTypeLabel maps an exchange order type to its display label. Unknown
// types pass through unchanged.
func (l *Locale) OrderTypeLabel(t core.OrderType) string {
	if label, ok := l.OrderTypes[t]; ok {
		return label
	}
	return string(t)
}
