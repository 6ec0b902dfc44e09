package processor

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/ZaguanLabs/gonote"
)

const (
	timestampWords = 7
	signatureWords = 104

	// DefaultInvoiceExpiry applies when an invoice carries no x field.
	DefaultInvoiceExpiry = 3600

	fieldPaymentHash = 1
	fieldDescription = 13
	fieldExpiry      = 6

	msatPerBTC = 100_000_000_000
)

var amountMultipliers = map[byte]int64{
	'm': 100_000_000,
	'u': 100_000,
	'n': 100,
}

// DecodeInvoice parses a BOLT-11 payment request. A leading "lightning:"
// is accepted. The signature is not verified.
func DecodeInvoice(raw string) (gonote.Invoice, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "lightning:")

	hrp, data, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return gonote.Invoice{}, invoiceError("invalid bech32", err)
	}

	amount, err := parseAmount(hrp)
	if err != nil {
		return gonote.Invoice{}, err
	}

	if len(data) < timestampWords+signatureWords {
		return gonote.Invoice{}, invoiceError("data too short", nil)
	}

	inv := gonote.Invoice{
		Amount:    amount,
		Expiry:    DefaultInvoiceExpiry,
		CreatedAt: wordsToUint(data[:timestampWords]),
		Raw:       raw,
	}

	fields := data[timestampWords : len(data)-signatureWords]
	for len(fields) > 0 {
		if len(fields) < 3 {
			return gonote.Invoice{}, invoiceError("truncated tagged field", nil)
		}
		typ := fields[0]
		n := int(fields[1])<<5 | int(fields[2])
		fields = fields[3:]
		if n > len(fields) {
			return gonote.Invoice{}, invoiceError(fmt.Sprintf("field %d overruns data", typ), nil)
		}
		value := fields[:n]
		fields = fields[n:]

		switch typ {
		case fieldPaymentHash:
			// unknown lengths must be skipped
			if n != 52 {
				continue
			}
			b, err := bech32.ConvertBits(value, 5, 8, false)
			if err != nil {
				return gonote.Invoice{}, invoiceError("payment hash", err)
			}
			inv.PaymentHash = hex.EncodeToString(b)
		case fieldDescription:
			b, err := bech32.ConvertBits(value, 5, 8, false)
			if err != nil {
				return gonote.Invoice{}, invoiceError("description", err)
			}
			inv.Description = string(b)
		case fieldExpiry:
			inv.Expiry = wordsToUint(value)
		}
	}

	return inv, nil
}

// parseAmount reads the amount from a human readable part such as
// "lnbc2500u". No amount means the payer picks one.
func parseAmount(hrp string) (gonote.Amount, error) {
	if !strings.HasPrefix(hrp, "ln") {
		return gonote.Amount{}, invoiceError("not a lightning invoice: "+hrp, nil)
	}

	rest := hrp[2:]
	start := strings.IndexAny(rest, "0123456789")
	if start < 0 {
		return gonote.Amount{Any: true}, nil
	}
	if start == 0 {
		return gonote.Amount{}, invoiceError("missing currency prefix", nil)
	}

	amount := rest[start:]
	var mult byte
	if last := amount[len(amount)-1]; last < '0' || last > '9' {
		mult = last
		amount = amount[:len(amount)-1]
	}

	n, err := strconv.ParseInt(amount, 10, 64)
	if err != nil {
		return gonote.Amount{}, invoiceError("invalid amount", err)
	}

	var msat int64
	switch mult {
	case 0:
		msat, err = mulAmount(n, msatPerBTC)
	case 'p':
		if n%10 != 0 {
			return gonote.Amount{}, invoiceError("sub-millisatoshi amount", nil)
		}
		msat = n / 10
	default:
		factor, ok := amountMultipliers[mult]
		if !ok {
			return gonote.Amount{}, invoiceError(fmt.Sprintf("unknown multiplier %q", mult), nil)
		}
		msat, err = mulAmount(n, factor)
	}
	if err != nil {
		return gonote.Amount{}, err
	}

	return gonote.Amount{Msat: msat}, nil
}

func mulAmount(n, factor int64) (int64, error) {
	if n > math.MaxInt64/factor {
		return 0, invoiceError("amount overflows", nil)
	}
	return n * factor, nil
}

func wordsToUint(words []byte) uint64 {
	var v uint64
	for _, w := range words {
		v = v<<5 | uint64(w)
	}
	return v
}

func invoiceError(msg string, cause error) error {
	return &gonote.ProcessorError{Message: msg, Cause: cause, ContentType: "bolt11"}
}
