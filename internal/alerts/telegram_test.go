package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"okx-unwind-bot/internal/config"
	"okx-unwind-bot/internal/engine"

	"go.uber.org/zap"
)

func TestSendDisabledIsANoOp(t *testing.T) {
	n := newNotifier(config.TelegramConfig{Enabled: false}, zap.NewNop(), "http://unused", nil)
	if err := n.Send(context.Background(), "freed 100 USDT"); err != nil {
		t.Fatalf("expected nil error when disabled, got %v", err)
	}
}

func TestSendMissingCredentials(t *testing.T) {
	n := newNotifier(config.TelegramConfig{Enabled: true}, zap.NewNop(), "http://unused", nil)
	if err := n.Send(context.Background(), "freed 100 USDT"); err == nil {
		t.Fatalf("expected error for missing token/chat_id")
	}
}

func TestSendPostsMessage(t *testing.T) {
	var gotPath string
	var got sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer server.Close()

	cfg := config.TelegramConfig{Enabled: true, Token: "unwind-token", ChatID: "4242"}
	n := newNotifier(cfg, zap.NewNop(), server.URL, server.Client())
	if err := n.Send(context.Background(), "BTC close completed"); err != nil {
		t.Fatalf("expected send success, got %v", err)
	}
	if gotPath != "/botunwind-token/sendMessage" {
		t.Fatalf("expected path /botunwind-token/sendMessage, got %s", gotPath)
	}
	if got.ChatID != "4242" {
		t.Fatalf("expected chat_id 4242, got %q", got.ChatID)
	}
	if got.Text != "BTC close completed" {
		t.Fatalf("unexpected text %q", got.Text)
	}
}

func TestSendSurfacesAPIRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	cfg := config.TelegramConfig{Enabled: true, Token: "t", ChatID: "1"}
	n := newNotifier(cfg, zap.NewNop(), server.URL, server.Client())
	err := n.Send(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected rejection with description, got %v", err)
	}
}

func TestSessionMessageCompleted(t *testing.T) {
	summary := engine.Summary{
		FreedUSDT:  1523.40,
		SwapFilled: 0.25,
		FeeTotal:   -1.12,
		Pairs:      5,
	}
	msg := SessionMessage("BTC", engine.ModeClose, summary, nil)
	for _, want := range []string{"BTC", "close", "completed", "0.250000", "5 pairs", "1523.40"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}

func TestSessionMessageAborted(t *testing.T) {
	summary := engine.Summary{FreedUSDT: 210.55, SwapFilled: 0.05, Pairs: 1}
	msg := SessionMessage("BTC", engine.ModeReduce, summary, errors.New("hedge parity violated"))
	if !strings.Contains(msg, "aborted") {
		t.Fatalf("expected aborted message, got %q", msg)
	}
	if !strings.Contains(msg, "hedge parity violated") {
		t.Fatalf("expected cause in message, got %q", msg)
	}
	if !strings.Contains(msg, "210.55") {
		t.Fatalf("partial freed cash must be reported, got %q", msg)
	}
}
