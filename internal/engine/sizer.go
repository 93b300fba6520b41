package engine

import (
	"math"

	"okx-unwind-bot/internal/market"

	"github.com/shopspring/decimal"
)

// sizing is one exchange-legal order pair. Contracts is the swap leg in
// integer contracts; SpotSize is the spot leg formatted at lot
// precision. Skip marks a tick the sizer refuses: quote too small, or a
// close-mode dust remainder that must wait for a better quote.
type sizing struct {
	OrderSize     float64
	Contracts     int64
	SpotSize      string
	SpotSizeValue float64
	Skip          bool
}

func sizePair(mode Mode, target, spotPos, swapPos float64, spot, swap market.Ticker, specs Specs) sizing {
	if mode == ModeClose {
		return sizeClose(target, spotPos, swapPos, spot, swap, specs)
	}
	return sizeReduce(target, spot, swap, specs)
}

// sizeReduce floors the common order size to the spot minimum and then
// to a whole number of contracts, so both legs stay exchange-legal and
// equal.
func sizeReduce(target float64, spot, swap market.Ticker, specs Specs) sizing {
	orderSize := math.Min(target, math.Min(spot.BidSz, swap.AskSz*specs.CtVal))
	orderSize = floorTo(orderSize, specs.SpotMinSz)
	orderSize = floorTo(orderSize, specs.CtVal)
	contracts := int64(math.Round(orderSize / specs.CtVal))
	if orderSize <= 0 || contracts <= 0 {
		return sizing{Skip: true}
	}
	spotSize := floorTo(orderSize, specs.SpotLotSz)
	return sizing{
		OrderSize:     orderSize,
		Contracts:     contracts,
		SpotSize:      formatSize(spotSize, specs.SpotLotDigits),
		SpotSizeValue: spotSize,
	}
}

// sizeClose sizes one pair of the full unwind. Contracts round to the
// nearest whole contract, and the spot leg must flush completely: dust
// below one minimum size cannot be sold later, so a tick that would
// strand it is skipped, and the final order absorbs the whole remaining
// spot inventory when the bid is deep enough.
func sizeClose(target, spotPos, swapPos float64, spot, swap market.Ticker, specs Specs) sizing {
	orderSize := math.Min(target, math.Min(floorTo(spot.BidSz, specs.SpotMinSz), swap.AskSz*specs.CtVal))
	contracts := int64(math.Round(orderSize / specs.CtVal))
	spotSize := floorTo(orderSize, specs.SpotLotSz)
	remnant := (spotPos - spotSize) / specs.SpotMinSz

	if target < swapPos {
		switch {
		case remnant >= 1:
			orderSize = float64(contracts) * specs.CtVal
			spotSize = floorTo(orderSize, specs.SpotLotSz)
		case remnant > 0:
			return sizing{Skip: true}
		}
	} else {
		if remnant >= 1 {
			orderSize = float64(contracts) * specs.CtVal
			spotSize = floorTo(orderSize, specs.SpotLotSz)
		} else if spotPos <= spot.BidSz {
			spotSize = spotPos
		} else {
			return sizing{Skip: true}
		}
	}
	if orderSize <= 0 || contracts <= 0 || spotSize <= 0 {
		return sizing{Skip: true}
	}
	return sizing{
		OrderSize:     orderSize,
		Contracts:     contracts,
		SpotSize:      formatSize(spotSize, specs.SpotLotDigits),
		SpotSizeValue: spotSize,
	}
}

func floorTo(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	v := decimal.NewFromFloat(value)
	s := decimal.NewFromFloat(step)
	out, _ := v.Div(s).Floor().Mul(s).Float64()
	return out
}

func formatSize(value float64, digits int) string {
	return decimal.NewFromFloat(value).StringFixed(int32(digits))
}
