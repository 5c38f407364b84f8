package binance

import (
	"strconv"
)

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type APIError struct {
	Status int
	Code   int
	Msg    string
}

func (e APIError) Error() string {
	return "binance api error " + strconv.Itoa(e.Code) + ": " + e.Msg
}

type listenKeyResponse struct {
	ListenKey string `json:"listenKey"`
}

// userStreamEvent carries only the envelope; the dashboard refetches
// everything over REST when an event arrives.
type userStreamEvent struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
}

const (
	eventAccountUpdate    = "ACCOUNT_UPDATE"
	eventOrderTradeUpdate = "ORDER_TRADE_UPDATE"
	eventListenKeyExpired = "listenKeyExpired"
)
