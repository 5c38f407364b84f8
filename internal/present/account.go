package present

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"futures-monitor/internal/core"
)

const (
	fieldWalletBalance = "totalWalletBalance"
	fieldUnrealized    = "totalUnrealizedProfit"
	fieldMarginBalance = "totalMarginBalance"
)

// AccountError means the exchange did not return an account summary. It
// stops the refresh loop.
type AccountError struct {
	Message string
	// Cause is the classified exchange error, if the response carried one.
	Cause error
}

func (e *AccountError) Error() string {
	return e.Message
}

func (e *AccountError) Unwrap() []error {
	if e.Cause == nil {
		return []error{core.ErrAccountRejected}
	}
	return []error{core.ErrAccountRejected, e.Cause}
}

type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type AccountView struct {
	Summary core.AccountSummary `json:"summary"`
	Metrics []Metric            `json:"metrics"`
}

// Account converts the account payload into the three headline metrics.
func Account(p core.Payload, loc *Locale) (AccountView, error) {
	obj, ok := p.Object()
	if !ok {
		return AccountView{}, accountError(p, nil, loc)
	}
	if _, ok := obj[fieldWalletBalance]; !ok {
		return AccountView{}, accountError(p, obj, loc)
	}
	wallet, err := decimalField(obj, fieldWalletBalance)
	if err != nil {
		return AccountView{}, err
	}
	unrealized, err := decimalField(obj, fieldUnrealized)
	if err != nil {
		return AccountView{}, err
	}
	margin, err := decimalField(obj, fieldMarginBalance)
	if err != nil {
		return AccountView{}, err
	}
	summary := core.AccountSummary{
		WalletBalance:    wallet,
		UnrealizedProfit: unrealized,
		MarginBalance:    margin,
	}
	return AccountView{
		Summary: summary,
		Metrics: []Metric{
			{Label: loc.WalletBalance, Value: loc.Money(wallet)},
			{Label: loc.Unrealized, Value: loc.Money(unrealized)},
			{Label: loc.MarginBalance, Value: loc.Money(margin)},
		},
	}, nil
}

func accountError(p core.Payload, obj map[string]json.RawMessage, loc *Locale) *AccountError {
	msg := ""
	if raw, ok := obj["msg"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			msg = s
		} else {
			msg = string(raw)
		}
	}
	if msg == "" && !p.IsFallback() {
		msg = strings.TrimSpace(p.Text())
	}
	if msg == "" {
		msg = loc.Unparsable
	}
	return &AccountError{Message: msg, Cause: p.APIErr}
}

// FailureMessage renders a refresh failure for display: account rejections
// get their own prefix, everything else is shown generically.
func FailureMessage(err error, loc *Locale) string {
	var accErr *AccountError
	if errors.As(err, &accErr) {
		return loc.Sprintf(loc.AccountErrFmt, accErr.Message)
	}
	return loc.Sprintf(loc.ErrorFmt, err)
}

func decimalField(obj map[string]json.RawMessage, key string) (decimal.Decimal, error) {
	raw, ok := obj[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("account field %s missing: %w", key, core.ErrUnexpectedPayload)
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return decimal.Zero, fmt.Errorf("account field %s: %w", key, err)
	}
	return d, nil
}
