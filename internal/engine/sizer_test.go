package engine

import (
	"math"
	"testing"

	"okx-unwind-bot/internal/market"
)

var sizerSpecs = Specs{
	SpotInstID:    "BTC-USDT",
	SwapInstID:    "BTC-USD-SWAP",
	SpotMinSz:     0.001,
	SpotLotSz:     0.0001,
	SpotLotDigits: 4,
	CtVal:         0.1,
}

func tick(bidPx, bidSz, askPx, askSz float64) (market.Ticker, market.Ticker) {
	spot := market.Ticker{InstID: "BTC-USDT", BidPx: bidPx, BidSz: bidSz}
	swap := market.Ticker{InstID: "BTC-USD-SWAP", AskPx: askPx, AskSz: askSz}
	return spot, swap
}

func TestSizeReduceFloorsToContracts(t *testing.T) {
	spot, swap := tick(50000, 10, 50100, 100)
	sz := sizeReduce(1.2345, spot, swap, sizerSpecs)
	if sz.Skip {
		t.Fatalf("unexpected skip")
	}
	if sz.Contracts != 12 {
		t.Fatalf("expected 12 contracts, got %d", sz.Contracts)
	}
	if sz.SpotSize != "1.2000" {
		t.Fatalf("expected spot size 1.2000, got %s", sz.SpotSize)
	}
	if math.Abs(sz.OrderSize-1.2) > 1e-12 {
		t.Fatalf("expected order size 1.2, got %v", sz.OrderSize)
	}
}

func TestSizeReduceCappedByQuoteDepth(t *testing.T) {
	spot, swap := tick(50000, 0.35, 50100, 100)
	sz := sizeReduce(2.0, spot, swap, sizerSpecs)
	if sz.Contracts != 3 {
		t.Fatalf("expected 3 contracts, got %d", sz.Contracts)
	}
	if sz.SpotSize != "0.3000" {
		t.Fatalf("expected spot size 0.3000, got %s", sz.SpotSize)
	}
}

func TestSizeReduceTooSmallSkips(t *testing.T) {
	spot, swap := tick(50000, 0.04, 50100, 100)
	sz := sizeReduce(2.0, spot, swap, sizerSpecs)
	if !sz.Skip {
		t.Fatalf("expected skip for sub-contract quote, got %+v", sz)
	}
}

func TestSizeCloseDustRemainderSkips(t *testing.T) {
	specs := Specs{SpotMinSz: 0.2, SpotLotSz: 0.1, SpotLotDigits: 1, CtVal: 1.0}
	spot, swap := tick(50000, 5, 50100, 5)
	// Selling 1.0 would leave 0.15, below one minimum size: unsellable.
	sz := sizeClose(1.0, 1.15, 2.0, spot, swap, specs)
	if !sz.Skip {
		t.Fatalf("expected skip for dust remainder, got %+v", sz)
	}
}

func TestSizeCloseRederivesFromContracts(t *testing.T) {
	specs := Specs{SpotMinSz: 0.2, SpotLotSz: 0.1, SpotLotDigits: 1, CtVal: 1.0}
	spot, swap := tick(50000, 5, 50100, 5)
	sz := sizeClose(1.9, 3.9, 2.0, spot, swap, specs)
	if sz.Skip {
		t.Fatalf("unexpected skip")
	}
	if sz.Contracts != 2 {
		t.Fatalf("expected 2 contracts, got %d", sz.Contracts)
	}
	if sz.SpotSize != "2.0" {
		t.Fatalf("expected spot size 2.0, got %s", sz.SpotSize)
	}
}

func TestSizeCloseConsumesAllSpotInventory(t *testing.T) {
	specs := Specs{SpotMinSz: 0.2, SpotLotSz: 0.1, SpotLotDigits: 1, CtVal: 1.0}
	spot, swap := tick(50000, 3, 50100, 5)
	sz := sizeClose(2.0, 2.1, 2.0, spot, swap, specs)
	if sz.Skip {
		t.Fatalf("unexpected skip")
	}
	if sz.Contracts != 2 {
		t.Fatalf("expected 2 contracts, got %d", sz.Contracts)
	}
	if sz.SpotSize != "2.1" {
		t.Fatalf("expected the whole spot inventory 2.1, got %s", sz.SpotSize)
	}
}

func TestSizeCloseShallowBidSkips(t *testing.T) {
	specs := Specs{SpotMinSz: 0.2, SpotLotSz: 0.1, SpotLotDigits: 1, CtVal: 1.0}
	// Bid too shallow to absorb the full 2.1 in one order.
	spot, swap := tick(50000, 2.0, 50100, 5)
	sz := sizeClose(2.0, 2.1, 2.0, spot, swap, specs)
	if !sz.Skip {
		t.Fatalf("expected skip when the bid cannot absorb all spot, got %+v", sz)
	}
}

func TestFloorTo(t *testing.T) {
	cases := []struct {
		value, step, want float64
	}{
		{1.2345, 0.001, 1.234},
		{1.2345, 0.1, 1.2},
		{2.0, 0.1, 2.0},
		{0.0999, 0.1, 0},
		{3.0, 0.2, 3.0},
	}
	for _, tc := range cases {
		if got := floorTo(tc.value, tc.step); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("floorTo(%v, %v) = %v, want %v", tc.value, tc.step, got, tc.want)
		}
	}
}
