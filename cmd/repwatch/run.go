package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/repwatch/repwatch/internal/aggregator"
	"github.com/repwatch/repwatch/internal/alerts"
)

var (
	runQuery  string
	runWindow time.Duration
	runJSON   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Perform a single monitoring pass and print the result",
	RunE:  runOnce,
}

func init() {
	runCmd.Flags().StringVarP(&runQuery, "query", "q", "", "tracked subject (defaults to QUERY)")
	runCmd.Flags().DurationVarP(&runWindow, "window", "w", 24*time.Hour, "how far back to search")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the full result as JSON")
}

func runOnce(cmd *cobra.Command, args []string) error {
	query := runQuery
	if query == "" {
		query = cfg.Query
	}
	if query == "" {
		return fmt.Errorf("no query given: set --query or the QUERY environment variable")
	}

	backend, err := buildStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	dispatcher := alerts.NewService(cfg)
	svc := aggregator.NewService(cfg, backend, dispatcher, aggregator.BuildSources(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()

	until := time.Now()
	since := until.Add(-runWindow)

	mentions, statuses, err := svc.Collect(ctx, query, since, until)
	if err != nil {
		return err
	}

	if runJSON {
		result := aggregator.RunResult{
			Mentions: mentions,
			Statuses: statuses,
			Since:    since,
			Until:    until,
			Query:    query,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("Found %d mentions for %q in the last %v\n\n", len(mentions), query, runWindow)
	for name, status := range statuses {
		line := fmt.Sprintf("  %-10s %-10s %d mentions", name, status.State, status.Mentions)
		if status.Reason != "" {
			line += fmt.Sprintf(" (%s)", status.Reason)
		}
		fmt.Println(line)
	}
	fmt.Println()

	for _, m := range mentions {
		label := "unscored"
		if m.Sentiment != nil {
			label = fmt.Sprintf("%s %.2f", m.Sentiment.Label, m.Sentiment.Score)
		}
		fmt.Printf("[%s] %s by %s (%s)\n", m.CreatedAt.Format("2006-01-02 15:04"), m.Platform, m.Author, label)
		fmt.Printf("    %s\n", truncateLine(m.Text, 120))
		if len(m.Keywords) > 0 {
			fmt.Printf("    keywords: %v\n", m.Keywords)
		}
		fmt.Printf("    %s\n\n", m.URL)
	}

	logrus.Debugf("run complete, %d mentions", len(mentions))
	return nil
}

func truncateLine(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
