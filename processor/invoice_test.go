package processor

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/ZaguanLabs/gonote"
)

const testPaymentHash = "0001020304050607080900010203040506070809000102030405060708090102"

// encodeInvoice builds a checksummed invoice with a zero signature.
func encodeInvoice(t *testing.T, hrp string, timestamp uint64, fields ...[]byte) string {
	t.Helper()

	data := uintToWords(timestamp, timestampWords)
	for _, f := range fields {
		data = append(data, f...)
	}
	data = append(data, make([]byte, signatureWords)...)

	s, err := bech32.Encode(hrp, data)
	if err != nil {
		t.Fatalf("bech32 encode failed: %v", err)
	}
	return s
}

func tagged(typ byte, words []byte) []byte {
	return append([]byte{typ, byte(len(words) >> 5), byte(len(words) & 31)}, words...)
}

func bytesToWords(t *testing.T, b []byte) []byte {
	t.Helper()
	words, err := bech32.ConvertBits(b, 8, 5, true)
	if err != nil {
		t.Fatalf("convert bits failed: %v", err)
	}
	return words
}

func uintToWords(v uint64, n int) []byte {
	words := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		words[i] = byte(v & 31)
		v >>= 5
	}
	return words
}

func testInvoice(t *testing.T, hrp string, fields ...[]byte) string {
	t.Helper()
	hash, _ := hex.DecodeString(testPaymentHash)
	all := append([][]byte{tagged(fieldPaymentHash, bytesToWords(t, hash))}, fields...)
	return encodeInvoice(t, hrp, 1496314658, all...)
}

func TestDecodeInvoice(t *testing.T) {
	raw := testInvoice(t, "lnbc2500u",
		tagged(fieldDescription, bytesToWords(t, []byte("1 cup coffee"))),
		tagged(fieldExpiry, uintToWords(60, 2)),
	)

	inv, err := DecodeInvoice(raw)
	if err != nil {
		t.Fatalf("DecodeInvoice failed: %v", err)
	}

	if inv.Amount.Msat != 250_000_000 {
		t.Errorf("Expected 250000000 msat, got %d", inv.Amount.Msat)
	}
	if inv.Amount.Any {
		t.Error("Amount should not be 'any'")
	}
	if inv.Description != "1 cup coffee" {
		t.Errorf("Expected description '1 cup coffee', got %q", inv.Description)
	}
	if inv.PaymentHash != testPaymentHash {
		t.Errorf("Expected payment hash %s, got %s", testPaymentHash, inv.PaymentHash)
	}
	if inv.Expiry != 60 {
		t.Errorf("Expected expiry 60, got %d", inv.Expiry)
	}
	if inv.CreatedAt != 1496314658 {
		t.Errorf("Expected timestamp 1496314658, got %d", inv.CreatedAt)
	}
	if inv.Raw != raw {
		t.Error("Raw should keep the original string")
	}
}

func TestDecodeInvoice_Defaults(t *testing.T) {
	inv, err := DecodeInvoice(testInvoice(t, "lnbc"))
	if err != nil {
		t.Fatalf("DecodeInvoice failed: %v", err)
	}

	if !inv.Amount.Any {
		t.Error("Invoice without amount should accept any amount")
	}
	if inv.Expiry != DefaultInvoiceExpiry {
		t.Errorf("Expected default expiry %d, got %d", DefaultInvoiceExpiry, inv.Expiry)
	}
	if inv.Description != "" {
		t.Errorf("Expected empty description, got %q", inv.Description)
	}
}

func TestDecodeInvoice_PrefixAndCase(t *testing.T) {
	raw := testInvoice(t, "lnbc10n")

	for _, input := range []string{"lightning:" + raw, strings.ToUpper(raw), "LIGHTNING:" + strings.ToUpper(raw)} {
		inv, err := DecodeInvoice(input)
		if err != nil {
			t.Errorf("DecodeInvoice(%q) failed: %v", input, err)
			continue
		}
		if inv.Amount.Msat != 1000 {
			t.Errorf("Expected 1000 msat, got %d", inv.Amount.Msat)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		hrp     string
		msat    int64
		any     bool
		wantErr bool
	}{
		{"lnbc", 0, true, false},
		{"lnbc1", 100_000_000_000, false, false},
		{"lnbc1m", 100_000_000, false, false},
		{"lnbc2500u", 250_000_000, false, false},
		{"lnbc10n", 1000, false, false},
		{"lnbc10p", 1, false, false},
		{"lntb20m", 2_000_000_000, false, false},
		{"lnbcrt5u", 500_000, false, false},
		{"lnbc1p", 0, false, true},
		{"lnbc2x", 0, false, true},
		{"ln1m", 0, false, true},
		{"bc1m", 0, false, true},
		{"lnbc99999999999999999", 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.hrp, func(t *testing.T) {
			amount, err := parseAmount(tt.hrp)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseAmount(%q) should fail, got %+v", tt.hrp, amount)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAmount(%q) failed: %v", tt.hrp, err)
			}
			if amount.Msat != tt.msat || amount.Any != tt.any {
				t.Errorf("parseAmount(%q) = %+v, want msat=%d any=%v", tt.hrp, amount, tt.msat, tt.any)
			}
		})
	}
}

func TestDecodeInvoice_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"bad checksum", "lnbc1qqqqqqqqqqqqqqqq"},
		{"not lightning", encodeInvoice(t, "bc", 0)},
		{"too short", func() string {
			s, _ := bech32.Encode("lnbc", make([]byte, 20))
			return s
		}()},
		{"overrunning field", encodeInvoice(t, "lnbc", 0, []byte{fieldDescription, 3, 0})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInvoice(tt.input)
			if err == nil {
				t.Fatal("Expected error")
			}

			var procErr *gonote.ProcessorError
			if !errors.As(err, &procErr) {
				t.Fatalf("Expected ProcessorError, got %T", err)
			}
			if procErr.ContentType != "bolt11" {
				t.Errorf("Expected content type bolt11, got %q", procErr.ContentType)
			}
		})
	}
}

func TestAmount_Sats(t *testing.T) {
	inv, err := DecodeInvoice(testInvoice(t, "lnbc10p"))
	if err != nil {
		t.Fatalf("DecodeInvoice failed: %v", err)
	}
	if got := inv.Amount.String(); got != "0.001 sats" {
		t.Errorf("Expected '0.001 sats', got %q", got)
	}
}
