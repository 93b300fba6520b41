package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// PlaceOrder submits one order. A rejection the exchange reports through
// sCode comes back as an ack carrying the sentinel order id, not as an
// error: the caller decides whether a rejected leg is fatal.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (OrderAck, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/v5/trade/order", req, true)
	if err != nil {
		return OrderAck{}, err
	}
	var acks []rawOrderAck
	if err := json.Unmarshal(data, &acks); err != nil {
		return OrderAck{}, err
	}
	if len(acks) == 0 {
		return OrderAck{}, errors.New("empty order response")
	}
	ack := OrderAck{
		OrdID:   acks[0].OrdID,
		ClOrdID: acks[0].ClOrdID,
		SCode:   acks[0].SCode,
		SMsg:    acks[0].SMsg,
	}
	if ack.SCode != "" && ack.SCode != "0" {
		ack.OrdID = SentinelOrderID
	}
	if ack.OrdID == "" {
		ack.OrdID = SentinelOrderID
	}
	return ack, nil
}

// OrderDetail fetches the current state of one order.
func (c *Client) OrderDetail(ctx context.Context, instID, ordID string) (OrderDetail, error) {
	if ordID == "" || ordID == SentinelOrderID {
		return OrderDetail{}, fmt.Errorf("order id %q is not queryable", ordID)
	}
	path := "/api/v5/trade/order?" + url.Values{
		"instId": {instID},
		"ordId":  {ordID},
	}.Encode()
	data, err := c.do(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return OrderDetail{}, err
	}
	var details []rawOrderDetail
	if err := json.Unmarshal(data, &details); err != nil {
		return OrderDetail{}, err
	}
	if len(details) == 0 {
		return OrderDetail{}, fmt.Errorf("order %s not found", ordID)
	}
	raw := details[0]
	return OrderDetail{
		OrdID:     raw.OrdID,
		State:     raw.State,
		AccFillSz: parseFloat(raw.AccFillSz),
		AvgPx:     parseFloat(raw.AvgPx),
		Fee:       parseFloat(raw.Fee),
	}, nil
}
