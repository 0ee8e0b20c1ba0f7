package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ledgerlink/internal/assistant"
	"ledgerlink/internal/config"
	"ledgerlink/internal/history"
	"ledgerlink/internal/ledger"
	"ledgerlink/internal/logger"
	"ledgerlink/internal/session"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	question := flag.String("q", "", "Ask one question and exit; omit for interactive mode")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

	coordinator := session.NewCoordinator(func() ledger.Client { return ledger.NewHTTPClient() })
	turns := history.NewStore(cfg.HistoryPairs)

	model, err := assistant.NewGeminiModel(ctx, cfg.ModelName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize model client")
	}

	orch := assistant.NewOrchestrator(model, assistant.NewRegistry(), coordinator, turns, cfg.MaxToolRounds)

	if *question != "" {
		answer, err := ask(ctx, orch, cfg.Tenant(), *question)
		if err != nil {
			log.Fatal().Err(err).Msg("Ask failed")
		}
		fmt.Println(answer)
		return
	}

	// Interactive mode: conversation history lives for the life of the
	// process; /clear starts over, /quit exits.
	fmt.Println("Ask about your ledger (/clear to reset context, /quit to exit).")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return
		case "/clear":
			orch.ClearHistory(cfg.TenantID)
			fmt.Println("Conversation history cleared.")
			continue
		}

		answer, err := ask(ctx, orch, cfg.Tenant(), line)
		if err != nil {
			log.Error().Err(err).Msg("Ask failed")
			continue
		}
		fmt.Println(answer)
	}
}

func ask(ctx context.Context, orch *assistant.Orchestrator, tenant config.TenantConfig, question string) (string, error) {
	// Bound each question so a wedged ledger or model call cannot hang the CLI.
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	return orch.Ask(ctx, tenant, question)
}
