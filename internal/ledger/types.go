package ledger

import "encoding/json"

// Transaction is the canonical transaction shape: the system's normalized
// record, independent of any provider format. Amounts are signed integer
// minor units (negative = outflow). ExternalID is the sole deduplication key
// the ledger's import uses.
type Transaction struct {
	Date        string `json:"date"`
	AmountMinor int64  `json:"amount"`
	PayeeName   string `json:"payee_name"`
	Notes       string `json:"notes"`
	ExternalID  string `json:"external_id"`
	Cleared     bool   `json:"cleared"`
}

// Account is one ledger account.
type Account struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Closed    bool   `json:"closed"`
	OffBudget bool   `json:"off_budget"`
}

// Payee is one ledger payee.
type Payee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Category is one budget category.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// MonthCategory is one category's figures inside a budget month.
type MonthCategory struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Budgeted int64  `json:"budgeted"`
	Spent    int64  `json:"spent"`
	Balance  int64  `json:"balance"`
}

// BudgetMonth is the budget state for one month (YYYY-MM).
type BudgetMonth struct {
	Month      string          `json:"month"`
	Budgeted   int64           `json:"budgeted"`
	Spent      int64           `json:"spent"`
	ToBudget   int64           `json:"to_budget"`
	Categories []MonthCategory `json:"categories"`
}

// Schedule is one recurring transaction schedule.
type Schedule struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	NextDate    string `json:"next_date"`
	AmountMinor int64  `json:"amount"`
}

// Rule is one payee/category rule. Conditions and actions are kept opaque;
// the assistant only renders them.
type Rule struct {
	ID         string          `json:"id"`
	Stage      string          `json:"stage"`
	Conditions json.RawMessage `json:"conditions"`
	Actions    json.RawMessage `json:"actions"`
}

// ImportError is one per-transaction import failure reported by the ledger.
type ImportError struct {
	ExternalID string `json:"external_id"`
	Message    string `json:"message"`
}

// ImportResult is the ledger's report for one idempotent import call. The
// server guarantees at-most-once creation per external id; Added and Updated
// hold the ids it actually touched.
type ImportResult struct {
	Added   []string      `json:"added"`
	Updated []string      `json:"updated"`
	Errors  []ImportError `json:"errors"`
}
