package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"futures-monitor/internal/config"
	"futures-monitor/internal/core"
)

const (
	PathAccount    = "/fapi/v2/account"
	PathPositions  = "/fapi/v2/positionRisk"
	PathOpenOrders = "/fapi/v1/openOrders"
	PathUserTrades = "/fapi/v1/userTrades"
	pathListenKey  = "/fapi/v1/listenKey"
)

const (
	DefaultRestBaseURL       = "https://fapi.binance.com"
	defaultTradeHistoryLimit = 50
)

var log = logrus.WithField("module", "binance")

// RequestObserver receives one call per completed or failed HTTP request.
type RequestObserver interface {
	ObserveRequest(path string, status int, elapsed time.Duration, err error)
}

type Client struct {
	apiKey     string
	signer     Signer
	baseURL    string
	wsBaseURL  string
	recvWindow time.Duration
	tradeLimit int
	http       *resty.Client
	limiter    *rate.Limiter
	now        func() time.Time

	mu       sync.Mutex
	observer RequestObserver
}

type Options struct {
	APIKey            string
	APISecret         string
	Signer            Signer
	RestBaseURL       string
	WSBaseURL         string
	RecvWindowMs      int64
	HTTPTimeoutSec    int64
	MaxRequestsPerSec float64
	TradeHistoryLimit int
	Now               func() time.Time
}

func NewClient(cfg config.ExchangeConfig, wsBaseURL string) (*Client, error) {
	if !cfg.CredentialsReady() {
		return nil, core.ErrMissingCredentials
	}
	opts := Options{
		APIKey:            cfg.APIKey,
		APISecret:         cfg.APISecret,
		RestBaseURL:       cfg.RestBaseURL,
		WSBaseURL:         wsBaseURL,
		RecvWindowMs:      cfg.RecvWindowMs,
		HTTPTimeoutSec:    cfg.HTTPTimeoutSec,
		MaxRequestsPerSec: cfg.MaxRequestsPerSec,
		TradeHistoryLimit: cfg.TradeHistoryLimit,
	}
	if cfg.KeyType == config.KeyTypeEd25519 {
		key, err := LoadEd25519PrivateKey(cfg.Ed25519KeyPath)
		if err != nil {
			return nil, err
		}
		opts.Signer = NewEd25519Signer(key)
	}
	return NewClientWithOptions(opts), nil
}

func NewClientWithOptions(opts Options) *Client {
	timeout := 15 * time.Second
	if opts.HTTPTimeoutSec > 0 {
		timeout = time.Duration(opts.HTTPTimeoutSec) * time.Second
	}
	baseURL := strings.TrimRight(opts.RestBaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultRestBaseURL
	}
	signer := opts.Signer
	if signer == nil {
		signer = NewHMACSigner(opts.APISecret)
	}
	tradeLimit := opts.TradeHistoryLimit
	if tradeLimit <= 0 {
		tradeLimit = defaultTradeHistoryLimit
	}
	var limiter *rate.Limiter
	if opts.MaxRequestsPerSec > 0 {
		burst := int(opts.MaxRequestsPerSec)
		if burst < 4 {
			burst = 4
		}
		limiter = rate.NewLimiter(rate.Limit(opts.MaxRequestsPerSec), burst)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetLogger(log)
	return &Client{
		apiKey:     opts.APIKey,
		signer:     signer,
		baseURL:    baseURL,
		wsBaseURL:  strings.TrimRight(opts.WSBaseURL, "/"),
		recvWindow: time.Duration(opts.RecvWindowMs) * time.Millisecond,
		tradeLimit: tradeLimit,
		http:       httpClient,
		limiter:    limiter,
		now:        now,
	}
}

func (c *Client) SetObserver(observer RequestObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = observer
}

func (c *Client) Name() string {
	return "binance-usdm"
}

// AccountSummary fetches the futures account information.
func (c *Client) AccountSummary(ctx context.Context) (core.Payload, error) {
	return c.SignedGet(ctx, PathAccount, nil)
}

func (c *Client) Positions(ctx context.Context) (core.Payload, error) {
	return c.SignedGet(ctx, PathPositions, nil)
}

func (c *Client) OpenOrders(ctx context.Context) (core.Payload, error) {
	return c.SignedGet(ctx, PathOpenOrders, nil)
}

// UserTrades fetches the most recent account trades, newest limited by the
// configured trade history limit.
func (c *Client) UserTrades(ctx context.Context) (core.Payload, error) {
	params := Params{}
	params.Set("limit", strconv.Itoa(c.tradeLimit))
	return c.SignedGet(ctx, PathUserTrades, params)
}

// SignedGet issues a signed GET. A body that is not JSON comes back as a
// fallback payload; only transport failures return an error.
func (c *Client) SignedGet(ctx context.Context, path string, extra Params) (core.Payload, error) {
	params := make(Params, 0, len(extra)+1)
	params = append(params, extra...)
	if c.recvWindow > 0 && !params.Has("recvWindow") {
		params.Set("recvWindow", strconv.FormatInt(c.recvWindow.Milliseconds(), 10))
	}
	query := signedQuery(params, c.signer, c.now())
	return c.doRequest(ctx, http.MethodGet, path, query)
}

func (c *Client) doRequest(ctx context.Context, method, path, query string) (core.Payload, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return core.Payload{}, errors.Wrapf(err, "binance %s %s rate limit wait", method, path)
		}
	}
	target := path
	if query != "" {
		// The query is appended verbatim so the bytes sent are the bytes signed.
		target += "?" + query
	}
	req := c.http.R().
		SetContext(ctx).
		SetHeader("X-MBX-APIKEY", c.apiKey)
	started := time.Now()
	resp, err := req.Execute(method, target)
	elapsed := time.Since(started)
	if err != nil {
		c.observe(path, 0, elapsed, err)
		return core.Payload{}, errors.Wrapf(err, "binance %s %s", method, path)
	}
	status := resp.StatusCode()
	body := resp.Body()
	payload := core.NewPayload(status, body)
	if status/100 != 2 {
		payload.APIErr = parseAPIError(status, body)
		log.WithFields(logrus.Fields{
			"path":   path,
			"status": status,
		}).WithError(payload.APIErr).Warn("binance request rejected")
	} else if payload.IsFallback() {
		log.WithFields(logrus.Fields{
			"path":   path,
			"status": status,
			"bytes":  len(body),
		}).Warn("binance response is not json")
	}
	c.observe(path, status, elapsed, payload.APIErr)
	return payload, nil
}

func (c *Client) observe(path string, status int, elapsed time.Duration, err error) {
	c.mu.Lock()
	observer := c.observer
	c.mu.Unlock()
	if observer == nil {
		return
	}
	observer.ObserveRequest(path, status, elapsed, err)
}

func parseAPIError(status int, body []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Msg != "" {
		return wrapAPIError(status, apiErr.Code, apiErr.Msg)
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = fmt.Sprintf("http status %d", status)
	}
	return classifyAPIError(APIError{Status: status, Msg: msg})
}
