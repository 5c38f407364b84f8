package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"futures-monitor/internal/core"
)

var ErrListenKeyExpired = errors.New("binance listen key expired")

// UserStream watches the futures user data stream and turns account and
// order events into refresh nudges. Event contents are never trusted for
// display; the dashboard always refetches over REST.
type UserStream struct {
	client    *Client
	conn      *websocket.Conn
	listenKey string
	keepalive time.Duration

	closeOnce sync.Once
}

func (c *Client) NewUserStream(ctx context.Context, keepalive time.Duration) (*UserStream, error) {
	if c.wsBaseURL == "" {
		return nil, errors.New("ws base url required")
	}
	listenKey, err := c.createListenKey(ctx)
	if err != nil {
		return nil, err
	}
	endpoint := c.wsBaseURL + "/" + listenKey
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		_ = c.deleteListenKey(context.Background(), listenKey)
		return nil, fmt.Errorf("dial user stream: %w", err)
	}
	log.WithField("listen_key", core.MaskKey(listenKey)).Info("user stream connected")
	return &UserStream{client: c, conn: conn, listenKey: listenKey, keepalive: keepalive}, nil
}

func (c *Client) createListenKey(ctx context.Context) (string, error) {
	payload, err := c.doRequest(ctx, http.MethodPost, pathListenKey, "")
	if err != nil {
		return "", err
	}
	if payload.APIErr != nil {
		return "", payload.APIErr
	}
	var resp listenKeyResponse
	if payload.IsFallback() || json.Unmarshal(payload.Body, &resp) != nil || resp.ListenKey == "" {
		return "", errors.New("binance listen key response missing listenKey")
	}
	return resp.ListenKey, nil
}

func (c *Client) keepaliveListenKey(ctx context.Context, listenKey string) error {
	payload, err := c.doRequest(ctx, http.MethodPut, pathListenKey, "listenKey="+listenKey)
	if err != nil {
		return err
	}
	return payload.APIErr
}

func (c *Client) deleteListenKey(ctx context.Context, listenKey string) error {
	payload, err := c.doRequest(ctx, http.MethodDelete, pathListenKey, "listenKey="+listenKey)
	if err != nil {
		return err
	}
	return payload.APIErr
}

// Notify reads the stream until ctx ends or the connection fails, sending a
// non-blocking nudge for every account or order event. The returned channel
// receives at most one terminal error.
func (u *UserStream) Notify(ctx context.Context, nudge chan<- struct{}) <-chan error {
	errCh := make(chan error, 4)
	done := make(chan struct{})

	reportErr := func(err error) {
		if err == nil {
			return
		}
		select {
		case errCh <- err:
		default:
		}
	}

	readTimeout := 3 * time.Minute
	u.conn.SetPingHandler(func(data string) error {
		_ = u.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return u.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})
	u.conn.SetPongHandler(func(string) error {
		return u.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go func() {
		defer close(done)
		defer u.conn.Close()

		for {
			_ = u.conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, data, err := u.conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					reportErr(err)
				}
				return
			}
			var event userStreamEvent
			if err := json.Unmarshal(data, &event); err != nil {
				continue
			}
			switch event.EventType {
			case eventAccountUpdate, eventOrderTradeUpdate:
				log.WithField("event", event.EventType).Debug("user stream event")
				select {
				case nudge <- struct{}{}:
				default:
				}
			case eventListenKeyExpired:
				reportErr(ErrListenKeyExpired)
				return
			}
		}
	}()

	go func() {
		var tick <-chan time.Time
		if u.keepalive > 0 {
			ticker := time.NewTicker(u.keepalive)
			defer ticker.Stop()
			tick = ticker.C
		}
		for {
			select {
			case <-tick:
				if err := u.client.keepaliveListenKey(ctx, u.listenKey); err != nil {
					log.WithError(err).Warn("listen key keepalive failed")
					reportErr(err)
					_ = u.conn.Close()
					return
				}
				if err := u.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					reportErr(err)
					_ = u.conn.Close()
					return
				}
			case <-done:
				return
			case <-ctx.Done():
				_ = u.conn.Close()
				return
			}
		}
	}()

	return errCh
}

// Close releases the listen key and the connection. It is safe to call more
// than once.
func (u *UserStream) Close(ctx context.Context) error {
	var err error
	u.closeOnce.Do(func() {
		_ = u.conn.Close()
		err = u.client.deleteListenKey(ctx, u.listenKey)
		if err != nil {
			log.WithFields(logrus.Fields{
				"listen_key": core.MaskKey(u.listenKey),
			}).WithError(err).Warn("listen key delete failed")
		}
	})
	return err
}
