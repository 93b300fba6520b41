package market

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type tickerPush struct {
	Arg struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Event string `json:"event"`
	Data  []struct {
		InstID string `json:"instId"`
		BidPx  string `json:"bidPx"`
		BidSz  string `json:"bidSz"`
		AskPx  string `json:"askPx"`
		AskSz  string `json:"askSz"`
		TS     string `json:"ts"`
	} `json:"data"`
}

// parseTickerPush decodes one OKX tickers push. Subscribe acks and error
// events carry an "event" field and no data; both are ignored.
func parseTickerPush(msg json.RawMessage) (Ticker, bool) {
	var push tickerPush
	if err := json.Unmarshal(msg, &push); err != nil {
		return Ticker{}, false
	}
	if push.Event != "" || push.Arg.Channel != "tickers" || len(push.Data) == 0 {
		return Ticker{}, false
	}
	data := push.Data[0]
	instID := data.InstID
	if instID == "" {
		instID = push.Arg.InstID
	}
	if instID == "" {
		return Ticker{}, false
	}
	ticker := Ticker{
		InstID: instID,
		BidPx:  parseFloat(data.BidPx),
		BidSz:  parseFloat(data.BidSz),
		AskPx:  parseFloat(data.AskPx),
		AskSz:  parseFloat(data.AskSz),
	}
	if ms, err := strconv.ParseInt(strings.TrimSpace(data.TS), 10, 64); err == nil && ms > 0 {
		ticker.Time = time.UnixMilli(ms).UTC()
	}
	if ticker.BidPx <= 0 || ticker.AskPx <= 0 {
		return Ticker{}, false
	}
	return ticker, true
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
