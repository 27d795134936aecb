package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alertalink/linkguard/internal/cache"
	"github.com/alertalink/linkguard/internal/domain"
	"github.com/alertalink/linkguard/internal/engine"
	"github.com/alertalink/linkguard/internal/ml"
	"github.com/alertalink/linkguard/internal/reputation"
	"github.com/alertalink/linkguard/internal/signals"
)

var (
	analyzeModel   string
	analyzeOffline bool
	analyzeJSON    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [url]",
	Short: "Score a single URL from the command line",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "ml", `scoring model: "ml" or "heuristic"`)
	analyzeCmd.Flags().BoolVar(&analyzeOffline, "offline", false, "skip all external lookups")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the full result as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := domain.LoadConfig(configPath)
	if err != nil {
		return err
	}

	// One-shot tool: keep logs off stdout and quiet.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	opts := domain.DefaultAnalyzeOptions()
	switch domain.ModelType(analyzeModel) {
	case domain.ModelML, domain.ModelHeuristic:
		opts.Model = domain.ModelType(analyzeModel)
	default:
		return fmt.Errorf("unknown model %q", analyzeModel)
	}
	if analyzeOffline {
		opts.UseReputation = false
		opts.UseMalwareVerdict = false
		opts.UseDomainAge = false
	}

	store := signals.NewStore(signals.DefaultWeightTable())
	if cfg.Weights.Path != "" {
		if err := store.LoadFile(cfg.Weights.Path); err != nil {
			slog.Warn("using built-in weights", "error", err)
		}
	}

	generator := signals.NewGenerator(store)
	if len(cfg.Rules) > 0 {
		if err := generator.LoadCustomRules(cfg.Rules); err != nil {
			return fmt.Errorf("failed to load custom rules: %w", err)
		}
	}

	var model domain.ModelProvider = ml.None()
	if cfg.Model.Path != "" {
		if m, err := ml.Load(cfg.Model.Path); err == nil {
			model = m
		}
	}

	deps := engine.Deps{
		Weights:   store,
		Generator: generator,
		Model:     model,
		Logger:    logger,
	}
	if !analyzeOffline {
		verdictCache := cache.NewLRUCache(1024)
		deps.Reputation = reputation.NewTranco(cfg.Reputation, verdictCache, logger)
		deps.Malware = reputation.NewVirusTotal(cfg.Reputation, verdictCache, logger)
		deps.DomainAge = reputation.NewWhoisAge(cfg.Reputation, verdictCache, logger)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	res, err := engine.New(deps).Analyze(ctx, args[0], opts)
	if err != nil {
		return err
	}

	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	printResult(res)
	return nil
}

func printResult(res *domain.ScoreResult) {
	fmt.Printf("URL:        %s\n", res.NormalizedURL)
	fmt.Printf("Score:      %d/100\n", res.Score)
	fmt.Printf("Risk:       %s\n", res.RiskLevel)
	fmt.Printf("Model:      %s\n", res.ModelUsed)
	fmt.Println()

	if len(res.Signals) > 0 {
		fmt.Println("Signals:")
		for _, s := range res.Signals {
			fmt.Printf("  %+4d  [%-6s] %s\n", s.Weight, s.Severity, s.Explanation)
		}
		fmt.Println()
	}

	if len(res.Recommendations) > 0 {
		fmt.Println("Recommendations:")
		for _, r := range res.Recommendations {
			fmt.Printf("  - %s\n", r)
		}
	}
}
