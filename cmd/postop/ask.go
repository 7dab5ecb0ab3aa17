package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"postop/internal/handouts"
	"postop/internal/llm"
	"postop/internal/session"
)

var plainOutput bool

// askCmd answers a single question without the TUI
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question and print the streamed answer",
	Long: `Loads the reference material, sends the question as the first turn
of a fresh conversation (handout PDFs attached), and streams the answer
to stdout as it arrives.

Example:
  postop ask "When can I shower after rotator cuff surgery?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&plainOutput, "plain", false, "Collect the full answer before printing")
}

// runAsk performs the one-shot question flow.
func runAsk(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("empty question")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl+C abandons the in-flight request
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	logger.Info("Loading reference material",
		zap.String("handouts", cfg.Content.HandoutsDir),
		zap.String("protocols", cfg.Content.ProtocolsDir))

	store := handouts.NewStore(cfg.Content.HandoutsDir, cfg.Content.ProtocolsDir)
	bundle, err := store.Bundle(ctx)
	if err != nil {
		return fmt.Errorf("loading reference material: %w", err)
	}
	for _, w := range bundle.Warnings {
		logger.Warn("Reference file skipped", zap.String("reason", w))
	}
	logger.Info("Reference material loaded",
		zap.Int("handouts", bundle.DocumentCount()),
		zap.Int("protocols", bundle.ProtocolCount()))

	sess := session.New(bundle)
	if err := sess.AppendUser(question); err != nil {
		return err
	}
	system, messages := sess.Assemble()

	client := llm.NewClient(llm.Config{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	})

	if plainOutput {
		answer, err := client.Collect(ctx, system, messages)
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	}

	deltas, errs := client.Stream(ctx, system, messages)
	printed := false
	for delta := range deltas {
		fmt.Print(delta)
		printed = true
	}
	if printed {
		fmt.Println()
	}
	if err := <-errs; err != nil {
		return err
	}
	return nil
}
