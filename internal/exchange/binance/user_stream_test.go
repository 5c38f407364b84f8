package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestUserStreamNudgesAndExpires(t *testing.T) {
	var deleted int32
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc(pathListenKey, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-MBX-APIKEY") != "test-key" {
			t.Errorf("X-MBX-APIKEY = %q", r.Header.Get("X-MBX-APIKEY"))
		}
		switch r.Method {
		case http.MethodPost:
			_, _ = w.Write([]byte(`{"listenKey":"listen-key-123456"}`))
		case http.MethodDelete:
			if r.URL.Query().Get("listenKey") != "listen-key-123456" {
				t.Errorf("delete listenKey = %q", r.URL.Query().Get("listenKey"))
			}
			atomic.AddInt32(&deleted, 1)
			_, _ = w.Write([]byte(`{}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	})
	mux.HandleFunc("/ws/listen-key-123456", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"e":"ORDER_TRADE_UPDATE","E":1}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"e":"listenKeyExpired","E":2}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClientWithOptions(Options{
		APIKey:      "test-key",
		APISecret:   "test-secret",
		RestBaseURL: srv.URL,
		WSBaseURL:   "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := c.NewUserStream(ctx, 0)
	if err != nil {
		t.Fatalf("NewUserStream() error = %v", err)
	}
	nudge := make(chan struct{}, 1)
	errCh := stream.Notify(ctx, nudge)

	select {
	case <-nudge:
	case <-ctx.Done():
		t.Fatalf("no nudge before timeout")
	}
	select {
	case err := <-errCh:
		if !errors.Is(err, ErrListenKeyExpired) {
			t.Fatalf("stream error = %v, want ErrListenKeyExpired", err)
		}
	case <-ctx.Done():
		t.Fatalf("no expiry before timeout")
	}

	if err := stream.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := stream.Close(ctx); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if atomic.LoadInt32(&deleted) != 1 {
		t.Fatalf("listen key deletes = %d, want 1", deleted)
	}
}

func TestNewUserStreamRequiresWSBaseURL(t *testing.T) {
	c := NewClientWithOptions(Options{APIKey: "k", APISecret: "s"})
	if _, err := c.NewUserStream(context.Background(), time.Minute); err == nil {
		t.Fatalf("NewUserStream() error = nil, want ws base url error")
	}
}
