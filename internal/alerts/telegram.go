// Package alerts pushes unwind session outcomes to the operator over
// Telegram. A run is short-lived and usually unattended, so the final
// summary is the one message that matters; delivery failures are
// logged and never fail the session.
package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"okx-unwind-bot/internal/config"
	"okx-unwind-bot/internal/engine"

	"go.uber.org/zap"
)

const apiBaseURL = "https://api.telegram.org"

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

type Notifier struct {
	cfg     config.TelegramConfig
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func New(cfg config.TelegramConfig, log *zap.Logger) *Notifier {
	return newNotifier(cfg, log, apiBaseURL, &http.Client{Timeout: 10 * time.Second})
}

func newNotifier(cfg config.TelegramConfig, log *zap.Logger, baseURL string, client *http.Client) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Notifier{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
		log:     log,
	}
}

// SessionDone reports the outcome of one unwind run.
func (n *Notifier) SessionDone(ctx context.Context, currency string, mode engine.Mode, summary engine.Summary, runErr error) {
	if err := n.Send(ctx, SessionMessage(currency, mode, summary, runErr)); err != nil {
		n.log.Warn("session alert not delivered", zap.Error(err))
	}
}

func (n *Notifier) Send(ctx context.Context, text string) error {
	if !n.cfg.Enabled {
		return nil
	}
	token := strings.TrimSpace(n.cfg.Token)
	chatID := strings.TrimSpace(n.cfg.ChatID)
	if token == "" || chatID == "" {
		return errors.New("telegram token and chat_id are required")
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("telegram message is empty")
	}
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("telegram http %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	var result sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && !result.OK {
		desc := strings.TrimSpace(result.Description)
		if desc == "" {
			desc = "unknown telegram error"
		}
		return fmt.Errorf("telegram rejected the message: %s", desc)
	}
	return nil
}

// SessionMessage renders the operator-facing summary of one run. An
// aborted run still reports what it freed before the terminal
// condition.
func SessionMessage(currency string, mode engine.Mode, summary engine.Summary, runErr error) string {
	if runErr != nil {
		return fmt.Sprintf("%s %s aborted after %d pairs: unwound %.6f %s, freed %.2f USDT (%v)",
			currency, mode, summary.Pairs, summary.SwapFilled, currency, summary.FreedUSDT, runErr)
	}
	return fmt.Sprintf("%s %s completed: unwound %.6f %s over %d pairs, freed %.2f USDT, fees %.2f",
		currency, mode, summary.SwapFilled, currency, summary.Pairs, summary.FreedUSDT, summary.FeeTotal)
}
