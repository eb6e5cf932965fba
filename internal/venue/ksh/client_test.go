package ksh

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mdragan85/venuepoll/internal/venue"
)

// mockWSServer spins up a test WebSocket server driven by handler, mirroring
// the teacher's connection package test helper.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestDiscoverSingleOutcome(t *testing.T) {
	srv := mockWSServer(t, func(conn *websocket.Conn) {
		var cmd command
		conn.ReadJSON(&cmd)
		if cmd.Cmd != "list_markets" {
			t.Errorf("cmd = %q, want list_markets", cmd.Cmd)
		}
		msg, _ := json.Marshal(listMarketsMsg{Markets: []marketEntry{
			{MarketTicker: "BTC-100K", EventTicker: "BTC-EVT", Outcome: "YES", Status: "open", ExpirationTime: time.Now().Add(time.Hour).UnixMilli()},
		}})
		conn.WriteJSON(response{ID: cmd.ID, Type: "ok", Msg: msg})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	c := NewClient(wsURL(srv), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	insts, err := c.Discover(context.Background(), nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(insts) != 1 || insts[0].PollKey != "BTC-100K:YES" {
		t.Fatalf("unexpected instruments: %+v", insts)
	}
}

func TestGetOrderbookRoundTrip(t *testing.T) {
	srv := mockWSServer(t, func(conn *websocket.Conn) {
		var cmd command
		conn.ReadJSON(&cmd)
		msg, _ := json.Marshal(orderbookMsg{
			TsMs: 1700000000000,
			Yes:  [][2]string{{"0.52", "10"}},
			No:   [][2]string{{"0.47", "6"}},
		})
		conn.WriteJSON(response{ID: cmd.ID, Type: "ok", Msg: msg})
	})
	defer srv.Close()

	c := NewClient(wsURL(srv), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	raw, obTsMs, err := c.GetOrderbook(context.Background(), "BTC-100K:YES")
	if err != nil {
		t.Fatalf("GetOrderbook: %v", err)
	}
	if obTsMs == nil || *obTsMs != 1700000000000 {
		t.Fatalf("obTsMs = %v", obTsMs)
	}

	rec, err := Normalize(raw, "BTC-100K:YES", 1700000000001, obTsMs)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rec.BestBid != "0.52" {
		t.Fatalf("BestBid = %q, want 0.52", rec.BestBid)
	}
}

func TestGetOrderbookErrorResponse(t *testing.T) {
	srv := mockWSServer(t, func(conn *websocket.Conn) {
		var cmd command
		conn.ReadJSON(&cmd)
		msg, _ := json.Marshal(errorMsg{Code: "bad_ticker", Message: "unknown market"})
		conn.WriteJSON(response{ID: cmd.ID, Type: "error", Msg: msg})
	})
	defer srv.Close()

	c := NewClient(wsURL(srv), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	_, _, err := c.GetOrderbook(context.Background(), "NOPE:YES")
	fe, ok := err.(*venue.FetchError)
	if !ok {
		t.Fatalf("expected *venue.FetchError, got %T: %v", err, err)
	}
	if fe.Kind != venue.KindProtocol {
		t.Fatalf("Kind = %v, want protocol", fe.Kind)
	}
}

func TestGetOrderbookTimeout(t *testing.T) {
	srv := mockWSServer(t, func(conn *websocket.Conn) {
		// Never respond.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	c := NewClient(wsURL(srv), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		_, err := c.call(context.Background(), 20*time.Millisecond, "get_orderbook", getOrderbookParams{MarketTicker: "X"})
		done <- err
	}()

	select {
	case err := <-done:
		if time.Since(start) > time.Second {
			t.Fatalf("timeout took too long: %v", time.Since(start))
		}
		fe, ok := err.(*venue.FetchError)
		if !ok || fe.Kind != venue.KindTimeout {
			t.Fatalf("expected timeout FetchError, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("call did not return within 1s")
	}
}
