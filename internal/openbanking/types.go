package openbanking

import (
	"encoding/json"
	"fmt"
)

// Amount is a provider money value. The provider is inconsistent about the
// amount representation: some institutions deliver a decimal string, others a
// raw JSON number. Both are normalized to the string form here; parsing into
// minor units happens in the mapper.
type Amount struct {
	Value    string
	Currency string
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var aux struct {
		Amount   json.RawMessage `json:"amount"`
		Currency string          `json:"currency"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("unmarshal transaction_amount: %w", err)
	}
	a.Currency = aux.Currency

	if len(aux.Amount) == 0 {
		a.Value = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(aux.Amount, &s); err == nil {
		a.Value = s
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(aux.Amount, &n); err != nil {
		return fmt.Errorf("unmarshal transaction_amount: amount is neither string nor number: %s", aux.Amount)
	}
	a.Value = n.String()
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}{Amount: a.Value, Currency: a.Currency})
}

// RawTransaction is one provider transaction record as received. Fields are
// kept verbatim; nothing is normalized at this layer.
type RawTransaction struct {
	TransactionID        string   `json:"transaction_id"`
	EntryReference       string   `json:"entry_reference"`
	BookingDate          string   `json:"booking_date"`
	ValueDate            string   `json:"value_date"`
	TransactionDate      string   `json:"transaction_date"`
	Amount               Amount   `json:"transaction_amount"`
	CreditDebitIndicator string   `json:"credit_debit_indicator"`
	CreditorName         string   `json:"creditor_name"`
	DebtorName           string   `json:"debtor_name"`
	RemittanceLines      []string `json:"remittance_information"`
	BankTransactionCode  string   `json:"bank_transaction_code"`
	BookingStatus        string   `json:"booking_status"`
}

// transactionsPage is one page of the provider's transaction feed.
type transactionsPage struct {
	Transactions      []RawTransaction `json:"transactions"`
	ContinuationToken string           `json:"continuation_token"`
}
