package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Balance returns the trading-account cash balance for one currency.
func (c *Client) Balance(ctx context.Context, ccy string) (float64, error) {
	path := "/api/v5/account/balance?" + url.Values{"ccy": {ccy}}.Encode()
	data, err := c.do(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return 0, err
	}
	var balances []rawBalance
	if err := json.Unmarshal(data, &balances); err != nil {
		return 0, err
	}
	for _, bal := range balances {
		for _, detail := range bal.Details {
			if detail.Ccy == ccy {
				return parseFloat(detail.CashBal), nil
			}
		}
	}
	return 0, nil
}

// Position returns the holding for one instrument. A flat position comes
// back as the zero value, not an error.
func (c *Client) Position(ctx context.Context, instID string) (Position, error) {
	path := "/api/v5/account/positions?" + url.Values{"instId": {instID}}.Encode()
	data, err := c.do(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return Position{}, err
	}
	var positions []rawPosition
	if err := json.Unmarshal(data, &positions); err != nil {
		return Position{}, err
	}
	for _, raw := range positions {
		if raw.InstID != instID {
			continue
		}
		margin := parseFloat(raw.Margin)
		if margin == 0 {
			// Cross-margin positions report imr instead of margin.
			margin = parseFloat(raw.IMR)
		}
		return Position{
			InstID:    raw.InstID,
			Contracts: parseFloat(raw.Pos),
			Margin:    margin,
			UPL:       parseFloat(raw.UPL),
			AvgPx:     parseFloat(raw.AvgPx),
			Last:      parseFloat(raw.Last),
		}, nil
	}
	return Position{InstID: instID}, nil
}

// Instrument loads the immutable contract details for one instrument.
func (c *Client) Instrument(ctx context.Context, instType, instID string) (Instrument, error) {
	path := "/api/v5/public/instruments?" + url.Values{
		"instType": {instType},
		"instId":   {instID},
	}.Encode()
	data, err := c.do(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return Instrument{}, err
	}
	var instruments []rawInstrument
	if err := json.Unmarshal(data, &instruments); err != nil {
		return Instrument{}, err
	}
	if len(instruments) == 0 {
		return Instrument{}, fmt.Errorf("instrument %s not found", instID)
	}
	raw := instruments[0]
	return Instrument{
		InstID:   raw.InstID,
		MinSz:    parseFloat(raw.MinSz),
		LotSz:    parseFloat(raw.LotSz),
		CtVal:    parseFloat(raw.CtVal),
		LotSzRaw: raw.LotSz,
	}, nil
}

// AddMargin moves freed cash back into the swap position's margin.
func (c *Client) AddMargin(ctx context.Context, instID string, amount float64) error {
	req := map[string]string{
		"instId":  instID,
		"posSide": "net",
		"type":    "add",
		"amt":     strconv.FormatFloat(amount, 'f', -1, 64),
	}
	data, err := c.do(ctx, http.MethodPost, "/api/v5/account/position/margin-balance", req, true)
	if err != nil {
		return err
	}
	var acks []struct {
		Amt string `json:"amt"`
	}
	if err := json.Unmarshal(data, &acks); err != nil {
		return err
	}
	if len(acks) == 0 {
		return fmt.Errorf("margin adjust for %s returned no result", instID)
	}
	return nil
}
