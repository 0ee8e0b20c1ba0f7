// Package assistant answers natural-language questions about a tenant's
// ledger by letting a model call read-only ledger tools in a bounded loop.
package assistant

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"ledgerlink/internal/config"
	"ledgerlink/internal/history"
	"ledgerlink/internal/ledger"
	"ledgerlink/internal/logger"
	"ledgerlink/internal/session"
)

const systemInstruction = "You are a personal finance assistant with read-only access to the " +
	"user's ledger through the provided tools. Use them to look up accounts, balances, " +
	"transactions, budgets, schedules and rules before answering. Amounts are integer minor " +
	"currency units; divide by 100 when presenting them. Answer concisely and never invent " +
	"figures you did not retrieve."

// Orchestrator runs the model/tool loop for one question at a time.
type Orchestrator struct {
	model       Model
	tools       *Registry
	coordinator *session.Coordinator
	history     *history.Store
	maxRounds   int
}

// NewOrchestrator wires the assistant together. maxRounds bounds how many
// tool rounds one question may consume.
func NewOrchestrator(model Model, tools *Registry, coordinator *session.Coordinator, hist *history.Store, maxRounds int) *Orchestrator {
	return &Orchestrator{
		model:       model,
		tools:       tools,
		coordinator: coordinator,
		history:     hist,
		maxRounds:   maxRounds,
	}
}

// Ask answers one question. The first model call runs without a ledger
// session; only when the model asks for tools does one session open, shared
// by every remaining round. The question/answer pair lands in history on
// success.
func (o *Orchestrator) Ask(ctx context.Context, cfg config.TenantConfig, question string) (string, error) {
	log := logger.WithTenant(logger.FromContext(ctx), cfg.TenantID)

	contents := o.contentsFromHistory(cfg.TenantID)
	contents = append(contents, &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: question}},
	})

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		Tools:             []*genai.Tool{{FunctionDeclarations: o.tools.Declarations()}},
	}

	resp, err := o.model.Generate(ctx, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("Ask: %w", err)
	}

	// Tool-call responses often carry commentary text alongside the calls;
	// the freshest non-empty text is the answer when the round budget runs
	// out before the model stops calling tools.
	var answer string
	lastText := resp.Text()
	if len(resp.FunctionCalls()) == 0 {
		answer = lastText
	} else {
		err = o.coordinator.WithSession(ctx, cfg.TenantID, cfg, func(ctx context.Context, client ledger.Client) error {
			for round := 1; ; round++ {
				if text := resp.Text(); text != "" {
					lastText = text
				}
				calls := resp.FunctionCalls()
				if len(calls) == 0 {
					answer = lastText
					return nil
				}
				if round > o.maxRounds {
					log.Warn().Int("max_rounds", o.maxRounds).Msg("Tool round budget exhausted")
					answer = lastText
					return nil
				}

				modelTurn, err := modelContent(resp)
				if err != nil {
					return err
				}
				contents = append(contents, modelTurn)

				parts := make([]*genai.Part, 0, len(calls))
				for _, call := range calls {
					log.Debug().Str("tool", call.Name).Msg("Executing tool call")
					parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
						ID:       call.ID,
						Name:     call.Name,
						Response: o.tools.Execute(ctx, client, cfg, call),
					}})
				}
				contents = append(contents, &genai.Content{Role: "user", Parts: parts})

				resp, err = o.model.Generate(ctx, contents, genCfg)
				if err != nil {
					return err
				}
			}
		})
		if err != nil {
			return "", fmt.Errorf("Ask: %w", err)
		}
	}

	o.history.Append(cfg.TenantID, history.Turn{Role: history.RoleUser, Content: question})
	o.history.Append(cfg.TenantID, history.Turn{Role: history.RoleAssistant, Content: answer})

	return answer, nil
}

// ClearHistory drops the tenant's conversation context.
func (o *Orchestrator) ClearHistory(tenantID string) {
	o.history.Clear(tenantID)
}

func (o *Orchestrator) contentsFromHistory(tenantID string) []*genai.Content {
	turns := o.history.Turns(tenantID)
	contents := make([]*genai.Content, 0, len(turns)+1)
	for _, turn := range turns {
		role := "user"
		if turn.Role == history.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: turn.Content}},
		})
	}
	return contents
}

func modelContent(resp *genai.GenerateContentResponse) (*genai.Content, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("model response has no candidates")
	}
	return resp.Candidates[0].Content, nil
}
