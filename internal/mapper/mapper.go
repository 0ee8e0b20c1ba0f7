// Package mapper converts raw Open Banking transaction records into the
// canonical ledger shape. Map is a total function: missing fields degrade to
// best-effort defaults, they never fail the batch.
package mapper

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ledgerlink/internal/ledger"
	"ledgerlink/internal/openbanking"
)

// Provider credit/debit indicator values.
const (
	IndicatorDebit  = "DBIT"
	IndicatorCredit = "CRDT"
)

// MalformedAmountError reports a provider amount that could not be parsed as
// a decimal number.
type MalformedAmountError struct {
	Value string
}

func (e *MalformedAmountError) Error() string {
	return fmt.Sprintf("mapper: malformed amount %q", e.Value)
}

// ParseMinorUnits parses a provider decimal amount (string form, either
// representation normalized upstream) into signed integer minor units,
// rounding half away from zero.
func ParseMinorUnits(value string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, &MalformedAmountError{Value: value}
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

// Map converts one raw provider transaction to its canonical form.
func Map(raw openbanking.RawTransaction) ledger.Transaction {
	amount, err := ParseMinorUnits(raw.Amount.Value)
	if err != nil {
		amount = 0
	}

	// A debit indicator forces the sign regardless of what the raw amount
	// carried; with no indicator the raw sign stands.
	switch raw.CreditDebitIndicator {
	case IndicatorDebit:
		amount = -abs(amount)
	case IndicatorCredit:
		amount = abs(amount)
	}

	return ledger.Transaction{
		Date:        pickDate(raw),
		AmountMinor: amount,
		PayeeName:   pickPayee(raw),
		Notes:       buildNotes(raw),
		ExternalID:  pickExternalID(raw),
		Cleared:     strings.EqualFold(raw.BookingStatus, "booked"),
	}
}

// MapAll maps a whole raw batch in order.
func MapAll(raw []openbanking.RawTransaction) []ledger.Transaction {
	mapped := make([]ledger.Transaction, 0, len(raw))
	for _, tx := range raw {
		mapped = append(mapped, Map(tx))
	}
	return mapped
}

// pickDate returns the first non-empty date candidate in fixed priority
// order: booking, value, transaction. May be empty; the ledger rejects
// dateless records downstream.
func pickDate(raw openbanking.RawTransaction) string {
	for _, d := range []string{raw.BookingDate, raw.ValueDate, raw.TransactionDate} {
		if d != "" {
			return d
		}
	}
	return ""
}

func pickPayee(raw openbanking.RawTransaction) string {
	var name string
	switch raw.CreditDebitIndicator {
	case IndicatorCredit:
		name = raw.CreditorName
	case IndicatorDebit:
		name = raw.DebtorName
	default:
		name = firstNonEmpty(raw.CreditorName, raw.DebtorName)
	}
	if name != "" {
		return name
	}
	for _, line := range raw.RemittanceLines {
		if strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

func buildNotes(raw openbanking.RawTransaction) string {
	var lines []string
	for _, line := range raw.RemittanceLines {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	remittance := strings.Join(lines, " ")

	code := strings.TrimSpace(raw.BankTransactionCode)
	switch {
	case code != "" && remittance != "":
		return code + " - " + remittance
	case code != "":
		return code
	default:
		return remittance
	}
}

func pickExternalID(raw openbanking.RawTransaction) string {
	if raw.TransactionID != "" {
		return raw.TransactionID
	}
	return raw.EntryReference
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
