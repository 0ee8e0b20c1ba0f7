package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestServer serves a minimal ledger API: password "pw" yields token
// "tok-1", sync id "sync-ok" is the only known ledger.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/session", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"token": "tok-1"}})
	})

	mux.HandleFunc("POST /api/v1/ledgers/{syncID}/select", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.PathValue("syncID") != "sync-ok" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("GET /api/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []Account{
			{ID: "a1", Name: "Checking"},
			{ID: "a2", Name: "Old savings", Closed: true},
		}})
	})

	mux.HandleFunc("POST /api/v1/accounts/{id}/transactions/import", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Transactions []Transaction `json:"transactions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var added []string
		for _, tx := range body.Transactions {
			added = append(added, tx.ExternalID)
		}
		json.NewEncoder(w).Encode(map[string]any{"data": ImportResult{Added: added}})
	})

	return httptest.NewServer(mux)
}

func connect(t *testing.T, srv *httptest.Server) *HTTPClient {
	t.Helper()
	client := NewHTTPClient()
	if err := client.Connect(context.Background(), srv.URL, "pw"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return client
}

func TestConnect_BadPassword(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	client := NewHTTPClient()
	err := client.Connect(context.Background(), srv.URL, "wrong")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	srv := newTestServer(t)
	srv.Close() // nothing listening anymore

	client := NewHTTPClient()
	err := client.Connect(context.Background(), srv.URL, "pw")
	if !errors.Is(err, ErrConnectionRefused) {
		t.Errorf("error = %v, want ErrConnectionRefused", err)
	}
}

func TestSelectLedger_UnknownSyncID(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	client := connect(t, srv)
	err := client.SelectLedger(context.Background(), "sync-missing")
	if !errors.Is(err, ErrLedgerNotFound) {
		t.Errorf("error = %v, want ErrLedgerNotFound", err)
	}
}

func TestSelectLedger_OK(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	client := connect(t, srv)
	if err := client.SelectLedger(context.Background(), "sync-ok"); err != nil {
		t.Fatalf("SelectLedger() error = %v", err)
	}
}

func TestListAccounts_DecodesEnvelope(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	client := connect(t, srv)
	accounts, err := client.ListAccounts(context.Background())
	if err != nil {
		t.Fatalf("ListAccounts() error = %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("got %d accounts, want 2", len(accounts))
	}
	if !accounts[1].Closed {
		t.Error("second account should be closed")
	}
}

func TestImportTransactions_RoundTrip(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	client := connect(t, srv)
	batch := []Transaction{
		{Date: "2026-02-10", AmountMinor: -1235, ExternalID: "TX1", Cleared: true},
		{Date: "2026-02-11", AmountMinor: 5000, ExternalID: "TX2"},
	}

	result, err := client.ImportTransactions(context.Background(), "a1", batch)
	if err != nil {
		t.Fatalf("ImportTransactions() error = %v", err)
	}
	if len(result.Added) != 2 || result.Added[0] != "TX1" {
		t.Errorf("Added = %v, want [TX1 TX2]", result.Added)
	}
}

func TestDisconnect_ClearsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/session", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"token": "tok-1"}})
	})
	var deleted bool
	mux.HandleFunc("DELETE /api/v1/session", func(w http.ResponseWriter, r *http.Request) {
		deleted = true
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewHTTPClient()
	if err := client.Connect(context.Background(), srv.URL, "pw"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := client.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if !deleted {
		t.Error("server session was not deleted")
	}
	// Idempotent on an already-closed client.
	if err := client.Disconnect(context.Background()); err != nil {
		t.Errorf("second Disconnect() error = %v", err)
	}
}

func TestGetBalance_AsOf(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/session", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"token": "tok-1"}})
	})
	mux.HandleFunc("GET /api/v1/accounts/{id}/balance", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("as_of"); got != "2026-03-01" {
			t.Errorf("as_of = %q, want 2026-03-01", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]int64{"balance": -34500}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewHTTPClient()
	if err := client.Connect(context.Background(), srv.URL, "pw"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	balance, err := client.GetBalance(context.Background(), "a1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	if balance != -34500 {
		t.Errorf("balance = %d, want -34500", balance)
	}
}
