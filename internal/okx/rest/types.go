package rest

import (
	"strconv"
	"strings"
)

// SentinelOrderID marks a submission the exchange rejected without a
// transport error. Callers treat it as "no order exists".
const SentinelOrderID = "-1"

// Order states as reported by GET /api/v5/trade/order.
const (
	StateLive            = "live"
	StateFilled          = "filled"
	StateCanceled        = "canceled"
	StatePartiallyFilled = "partially_filled"
)

type OrderRequest struct {
	InstID     string `json:"instId"`
	TdMode     string `json:"tdMode"`
	Side       string `json:"side"`
	OrdType    string `json:"ordType"`
	Sz         string `json:"sz"`
	Px         string `json:"px,omitempty"`
	ReduceOnly bool   `json:"reduceOnly,omitempty"`
	ClOrdID    string `json:"clOrdId,omitempty"`
}

type OrderAck struct {
	OrdID   string `json:"ordId"`
	ClOrdID string `json:"clOrdId"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
}

// Rejected reports whether the exchange refused the order without
// raising a transport error.
func (a OrderAck) Rejected() bool {
	return a.OrdID == "" || a.OrdID == SentinelOrderID
}

type OrderDetail struct {
	OrdID     string
	State     string
	AccFillSz float64
	AvgPx     float64
	Fee       float64
}

type Position struct {
	InstID    string
	Contracts float64
	Margin    float64
	UPL       float64
	AvgPx     float64
	Last      float64
}

type Instrument struct {
	InstID   string
	MinSz    float64
	LotSz    float64
	CtVal    float64
	LotSzRaw string
}

// LotDecimalDigits derives the number of fractional digits in the lot
// increment, e.g. "0.0001" -> 4.
func (i Instrument) LotDecimalDigits() int {
	dot := strings.IndexByte(i.LotSzRaw, '.')
	if dot < 0 {
		return 0
	}
	return len(i.LotSzRaw) - dot - 1
}

type rawOrderAck struct {
	OrdID   string `json:"ordId"`
	ClOrdID string `json:"clOrdId"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
}

type rawOrderDetail struct {
	OrdID     string `json:"ordId"`
	State     string `json:"state"`
	AccFillSz string `json:"accFillSz"`
	AvgPx     string `json:"avgPx"`
	Fee       string `json:"fee"`
}

type rawBalanceDetail struct {
	Ccy     string `json:"ccy"`
	CashBal string `json:"cashBal"`
}

type rawBalance struct {
	Details []rawBalanceDetail `json:"details"`
}

type rawPosition struct {
	InstID string `json:"instId"`
	Pos    string `json:"pos"`
	Margin string `json:"margin"`
	IMR    string `json:"imr"`
	UPL    string `json:"upl"`
	AvgPx  string `json:"avgPx"`
	Last   string `json:"last"`
}

type rawInstrument struct {
	InstID string `json:"instId"`
	MinSz  string `json:"minSz"`
	LotSz  string `json:"lotSz"`
	CtVal  string `json:"ctVal"`
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
