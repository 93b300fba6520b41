package engine

import (
	"testing"
	"time"
)

func TestInFundingBlackout(t *testing.T) {
	cases := []struct {
		hour, minute int
		want         bool
	}{
		{7, 59, true},
		{15, 59, true},
		{23, 59, true},
		{0, 0, true},
		{8, 0, true},
		{16, 0, true},
		{7, 58, false},
		{8, 1, false},
		{9, 0, false},
		{12, 30, false},
		{0, 1, false},
	}
	for _, tc := range cases {
		ts := time.Date(2024, 3, 15, tc.hour, tc.minute, 30, 0, time.UTC)
		if got := InFundingBlackout(ts); got != tc.want {
			t.Errorf("InFundingBlackout(%02d:%02d) = %v, want %v", tc.hour, tc.minute, got, tc.want)
		}
	}
}

func TestInFundingBlackoutConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	// 15:59 local is 07:59 UTC.
	ts := time.Date(2024, 3, 15, 15, 59, 0, 0, loc)
	if !InFundingBlackout(ts) {
		t.Fatalf("expected blackout for %v", ts)
	}
}
