package rest

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	creds := Credentials{APIKey: "key", APISecret: "secret", Passphrase: "pass"}
	return New(server.URL, 2*time.Second, creds, false, 100, 10, zap.NewNop())
}

func TestPlaceOrderSignsRequest(t *testing.T) {
	var gotKey, gotSign, gotTS, gotPass string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("OK-ACCESS-KEY")
		gotSign = r.Header.Get("OK-ACCESS-SIGN")
		gotTS = r.Header.Get("OK-ACCESS-TIMESTAMP")
		gotPass = r.Header.Get("OK-ACCESS-PASSPHRASE")
		w.Write([]byte(`{"code":"0","msg":"","data":[{"ordId":"12345","sCode":"0"}]}`))
	})
	ack, err := client.PlaceOrder(context.Background(), OrderRequest{
		InstID: "BTC-USDT", TdMode: "cash", Side: "sell", OrdType: "fok", Sz: "1", Px: "50000",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack.OrdID != "12345" || ack.Rejected() {
		t.Fatalf("expected accepted order 12345, got %+v", ack)
	}
	if gotKey != "key" || gotPass != "pass" {
		t.Fatalf("missing auth headers: key=%q pass=%q", gotKey, gotPass)
	}
	if gotTS == "" {
		t.Fatalf("missing timestamp header")
	}
	raw, err := base64.StdEncoding.DecodeString(gotSign)
	if err != nil {
		t.Fatalf("signature is not base64: %v", err)
	}
	if len(raw) != 32 {
		t.Fatalf("expected 32-byte hmac-sha256 signature, got %d bytes", len(raw))
	}
}

func TestPlaceOrderRejectionMapsToSentinel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"1","msg":"","data":[{"ordId":"","sCode":"51008","sMsg":"insufficient balance"}]}`))
	})
	ack, err := client.PlaceOrder(context.Background(), OrderRequest{InstID: "BTC-USDT"})
	if err != nil {
		t.Fatalf("rejection must not be a transport error: %v", err)
	}
	if !ack.Rejected() {
		t.Fatalf("expected rejected ack, got %+v", ack)
	}
	if ack.OrdID != SentinelOrderID {
		t.Fatalf("expected sentinel order id, got %q", ack.OrdID)
	}
	if ack.SCode != "51008" {
		t.Fatalf("expected sCode preserved, got %q", ack.SCode)
	}
}

func TestOrderDetailParsing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ordId") != "777" {
			t.Errorf("expected ordId query, got %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"code":"0","msg":"","data":[{"ordId":"777","state":"filled","accFillSz":"1.5","avgPx":"50123.4","fee":"-0.05"}]}`))
	})
	detail, err := client.OrderDetail(context.Background(), "BTC-USDT", "777")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.State != StateFilled {
		t.Fatalf("expected filled, got %q", detail.State)
	}
	if detail.AccFillSz != 1.5 || detail.AvgPx != 50123.4 || detail.Fee != -0.05 {
		t.Fatalf("unexpected detail: %+v", detail)
	}
}

func TestOrderDetailRejectsSentinelID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("sentinel id must not reach the exchange")
	})
	if _, err := client.OrderDetail(context.Background(), "BTC-USDT", SentinelOrderID); err == nil {
		t.Fatalf("expected error for sentinel order id")
	}
}

func TestInstrumentLotDigits(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"0","msg":"","data":[{"instId":"BTC-USDT","minSz":"0.0001","lotSz":"0.0001","ctVal":""}]}`))
	})
	inst, err := client.Instrument(context.Background(), "SPOT", "BTC-USDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.MinSz != 0.0001 || inst.LotSz != 0.0001 {
		t.Fatalf("unexpected instrument: %+v", inst)
	}
	if digits := inst.LotDecimalDigits(); digits != 4 {
		t.Fatalf("expected 4 lot digits, got %d", digits)
	}
}

func TestPositionFallsBackToIMR(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"0","msg":"","data":[{"instId":"BTC-USD-SWAP","pos":"-20","margin":"","imr":"0.11","upl":"0.004","avgPx":"48000","last":"50000"}]}`))
	})
	pos, err := client.Position(context.Background(), "BTC-USD-SWAP")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.Contracts != -20 {
		t.Fatalf("expected -20 contracts, got %v", pos.Contracts)
	}
	if pos.Margin != 0.11 {
		t.Fatalf("expected imr fallback margin, got %v", pos.Margin)
	}
}
