package app

import (
	"strings"
	"testing"

	"okx-unwind-bot/internal/okx/rest"
)

func TestBuildSpecs(t *testing.T) {
	spot := rest.Instrument{InstID: "BTC-USDT", MinSz: 0.0001, LotSz: 0.0001, LotSzRaw: "0.0001"}
	swap := rest.Instrument{InstID: "BTC-USD-SWAP", CtVal: 0.001}
	specs, err := buildSpecs(spot, swap)
	if err != nil {
		t.Fatalf("expected specs, got %v", err)
	}
	if specs.SpotMinSz != 0.0001 || specs.SpotLotSz != 0.0001 || specs.CtVal != 0.001 {
		t.Fatalf("unexpected specs %+v", specs)
	}
	if specs.SpotLotDigits != 4 {
		t.Fatalf("expected 4 lot digits, got %d", specs.SpotLotDigits)
	}
}

func TestBuildSpecsRejectsZeroSpotConstraints(t *testing.T) {
	swap := rest.Instrument{InstID: "BTC-USD-SWAP", CtVal: 0.001}
	if _, err := buildSpecs(rest.Instrument{InstID: "BTC-USDT", LotSz: 0.0001}, swap); err == nil {
		t.Fatal("expected error for zero minimum size")
	}
	if _, err := buildSpecs(rest.Instrument{InstID: "BTC-USDT", MinSz: 0.0001}, swap); err == nil {
		t.Fatal("expected error for zero lot size")
	}
}

func TestBuildSpecsRejectsZeroContractValue(t *testing.T) {
	spot := rest.Instrument{InstID: "BTC-USDT", MinSz: 0.0001, LotSz: 0.0001, LotSzRaw: "0.0001"}
	_, err := buildSpecs(spot, rest.Instrument{InstID: "BTC-USD-SWAP"})
	if err == nil {
		t.Fatal("expected error for zero contract value")
	}
	if !strings.Contains(err.Error(), "contract value") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("OKX_API_KEY", "key")
	t.Setenv("OKX_API_SECRET", "secret")
	t.Setenv("OKX_PASSPHRASE", "phrase")
	creds, err := credentialsFromEnv()
	if err != nil {
		t.Fatalf("expected credentials, got %v", err)
	}
	if creds.APIKey != "key" || creds.APISecret != "secret" || creds.Passphrase != "phrase" {
		t.Fatalf("unexpected credentials %+v", creds)
	}
}

func TestCredentialsFromEnvMissingSecret(t *testing.T) {
	t.Setenv("OKX_API_KEY", "key")
	t.Setenv("OKX_API_SECRET", "")
	t.Setenv("OKX_PASSPHRASE", "phrase")
	if _, err := credentialsFromEnv(); err == nil {
		t.Fatal("expected error for missing secret")
	}
}
