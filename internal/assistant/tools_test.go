package assistant

import (
	"context"
	"testing"

	"google.golang.org/genai"
)

func TestDeclarations_CoverCatalog(t *testing.T) {
	want := []string{
		"get_accounts", "get_balance", "get_transactions", "get_payees",
		"get_categories", "get_budget_month", "get_schedules", "get_rules",
	}

	decls := NewRegistry().Declarations()
	if len(decls) != len(want) {
		t.Fatalf("len(decls) = %d, want %d", len(decls), len(want))
	}
	for i, decl := range decls {
		if decl.Name != want[i] {
			t.Errorf("decls[%d].Name = %q, want %q", i, decl.Name, want[i])
		}
	}
}

func TestExecute_BalanceDefaultsToTenantAccount(t *testing.T) {
	registry := NewRegistry()
	backend := &fakeLedger{}

	payload := registry.Execute(context.Background(), backend, testTenant(),
		&genai.FunctionCall{Name: "get_balance", Args: map[string]any{}})

	if _, ok := payload["result"]; !ok {
		t.Fatalf("payload = %v, want a result key", payload)
	}
	if backend.lastBalanceAccount != "acct-1" {
		t.Errorf("account id = %q, want tenant default acct-1", backend.lastBalanceAccount)
	}
}

func TestExecute_RejectsBadMonth(t *testing.T) {
	registry := NewRegistry()

	payload := registry.Execute(context.Background(), &fakeLedger{}, testTenant(),
		&genai.FunctionCall{Name: "get_budget_month", Args: map[string]any{"month": "January"}})

	if _, ok := payload["error"]; !ok {
		t.Errorf("payload = %v, want an error key", payload)
	}
}

func TestExecute_TransactionsRequireRange(t *testing.T) {
	registry := NewRegistry()

	payload := registry.Execute(context.Background(), &fakeLedger{}, testTenant(),
		&genai.FunctionCall{Name: "get_transactions", Args: map[string]any{"start_date": "2026-01-01"}})

	if _, ok := payload["error"]; !ok {
		t.Errorf("payload = %v, want an error key", payload)
	}
}
