package rest

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Credentials hold the OKX v5 API key material. Loaded from the
// environment, never from the config file.
type Credentials struct {
	APIKey     string
	APISecret  string
	Passphrase string
}

type Client struct {
	baseURL   string
	http      *http.Client
	creds     Credentials
	simulated bool
	limiter   *rate.Limiter
	log       *zap.Logger
	now       func() time.Time
}

func New(baseURL string, timeout time.Duration, creds Credentials, simulated bool, limit rate.Limit, burst int, log *zap.Logger) *Client {
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: timeout,
		},
		creds:     creds,
		simulated: simulated,
		limiter:   rate.NewLimiter(limit, burst),
		log:       log,
		now:       time.Now,
	}
}

type apiError struct {
	Code string
	Msg  string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("okx api error %s: %s", e.Code, e.Msg)
}

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// do issues one request against the OKX REST API. Private endpoints are
// signed per the v5 scheme: HMAC-SHA256 over timestamp+method+path+body,
// base64 encoded.
func (c *Client) do(ctx context.Context, method, path string, body any, private bool) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if private {
		ts := c.now().UTC().Format("2006-01-02T15:04:05.000Z")
		req.Header.Set("OK-ACCESS-KEY", c.creds.APIKey)
		req.Header.Set("OK-ACCESS-SIGN", sign(c.creds.APISecret, ts, method, path, payload))
		req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
		req.Header.Set("OK-ACCESS-PASSPHRASE", c.creds.Passphrase)
	}
	if c.simulated {
		req.Header.Set("x-simulated-trading", "1")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(raw))
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	if env.Code != "0" && env.Code != "1" {
		// Code "1" means the request reached the matching engine but a
		// per-item sCode carries the real outcome; callers inspect data.
		return nil, &apiError{Code: env.Code, Msg: env.Msg}
	}
	return env.Data, nil
}

func sign(secret, timestamp, method, path string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(method))
	mac.Write([]byte(path))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
