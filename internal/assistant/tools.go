package assistant

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"ledgerlink/internal/config"
	"ledgerlink/internal/ledger"
)

const dateFormat = "2006-01-02"

// Tool is one read-only ledger query the model may call.
type Tool struct {
	Name        string
	Description string
	Parameters  *genai.Schema
	Run         func(ctx context.Context, client ledger.Client, cfg config.TenantConfig, args map[string]any) (any, error)
}

// Registry holds the tool catalog keyed by name.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds the full read-only catalog.
func NewRegistry() *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, tool := range catalog() {
		r.register(tool)
	}
	return r
}

func (r *Registry) register(tool Tool) {
	r.tools[tool.Name] = tool
	r.order = append(r.order, tool.Name)
}

// Declarations returns the catalog in registration order, ready to hand to
// the model.
func (r *Registry) Declarations() []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		})
	}
	return decls
}

// Execute runs one model-requested call and always produces a response
// payload. Unknown names and tool failures become error payloads so a bad
// call never aborts the round or its siblings.
func (r *Registry) Execute(ctx context.Context, client ledger.Client, cfg config.TenantConfig, call *genai.FunctionCall) map[string]any {
	tool, ok := r.tools[call.Name]
	if !ok {
		return map[string]any{"error": fmt.Sprintf("unknown tool %q", call.Name)}
	}

	result, err := tool.Run(ctx, client, cfg, call.Args)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return map[string]any{"result": result}
}

func catalog() []Tool {
	return []Tool{
		{
			Name:        "get_accounts",
			Description: "List all accounts in the ledger with their ids, names and status.",
			Parameters:  noParams(),
			Run: func(ctx context.Context, client ledger.Client, cfg config.TenantConfig, args map[string]any) (any, error) {
				return client.ListAccounts(ctx)
			},
		},
		{
			Name:        "get_balance",
			Description: "Get an account's balance in minor currency units, optionally as of a past date.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"account_id": {Type: genai.TypeString, Description: "Account id; defaults to the tenant's synced account."},
					"as_of":      {Type: genai.TypeString, Description: "Cutoff date, YYYY-MM-DD; defaults to today."},
				},
			},
			Run: func(ctx context.Context, client ledger.Client, cfg config.TenantConfig, args map[string]any) (any, error) {
				accountID := stringArg(args, "account_id", cfg.LedgerAccountID)
				asOf, err := dateArg(args, "as_of", time.Now().UTC())
				if err != nil {
					return nil, err
				}
				balance, err := client.GetBalance(ctx, accountID, asOf)
				if err != nil {
					return nil, err
				}
				return map[string]any{"account_id": accountID, "balance_minor": balance}, nil
			},
		},
		{
			Name:        "get_transactions",
			Description: "List an account's transactions in a date range.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"account_id": {Type: genai.TypeString, Description: "Account id; defaults to the tenant's synced account."},
					"start_date": {Type: genai.TypeString, Description: "Range start, YYYY-MM-DD."},
					"end_date":   {Type: genai.TypeString, Description: "Range end, YYYY-MM-DD."},
				},
				Required: []string{"start_date", "end_date"},
			},
			Run: func(ctx context.Context, client ledger.Client, cfg config.TenantConfig, args map[string]any) (any, error) {
				accountID := stringArg(args, "account_id", cfg.LedgerAccountID)
				from, err := dateArg(args, "start_date", time.Time{})
				if err != nil {
					return nil, err
				}
				to, err := dateArg(args, "end_date", time.Time{})
				if err != nil {
					return nil, err
				}
				if from.IsZero() || to.IsZero() {
					return nil, fmt.Errorf("start_date and end_date are required")
				}
				return client.ListTransactions(ctx, accountID, from, to)
			},
		},
		{
			Name:        "get_payees",
			Description: "List all payees known to the ledger.",
			Parameters:  noParams(),
			Run: func(ctx context.Context, client ledger.Client, cfg config.TenantConfig, args map[string]any) (any, error) {
				return client.ListPayees(ctx)
			},
		},
		{
			Name:        "get_categories",
			Description: "List all budget categories and their groups.",
			Parameters:  noParams(),
			Run: func(ctx context.Context, client ledger.Client, cfg config.TenantConfig, args map[string]any) (any, error) {
				return client.ListCategories(ctx)
			},
		},
		{
			Name:        "get_budget_month",
			Description: "Get budgeted and spent amounts per category for one month.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"month": {Type: genai.TypeString, Description: "Month, YYYY-MM."},
				},
				Required: []string{"month"},
			},
			Run: func(ctx context.Context, client ledger.Client, cfg config.TenantConfig, args map[string]any) (any, error) {
				month := stringArg(args, "month", "")
				if _, err := time.Parse("2006-01", month); err != nil {
					return nil, fmt.Errorf("invalid month %q: want YYYY-MM", month)
				}
				return client.GetBudgetMonth(ctx, month)
			},
		},
		{
			Name:        "get_schedules",
			Description: "List scheduled (recurring or upcoming) transactions.",
			Parameters:  noParams(),
			Run: func(ctx context.Context, client ledger.Client, cfg config.TenantConfig, args map[string]any) (any, error) {
				return client.ListSchedules(ctx)
			},
		},
		{
			Name:        "get_rules",
			Description: "List the ledger's transaction rules.",
			Parameters:  noParams(),
			Run: func(ctx context.Context, client ledger.Client, cfg config.TenantConfig, args map[string]any) (any, error) {
				return client.ListRules(ctx)
			},
		},
	}
}

func noParams() *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}
}

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func dateArg(args map[string]any, key string, fallback time.Time) (time.Time, error) {
	raw, ok := args[key].(string)
	if !ok || raw == "" {
		return fallback, nil
	}
	date, err := time.Parse(dateFormat, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: want YYYY-MM-DD", key, raw)
	}
	return date, nil
}
