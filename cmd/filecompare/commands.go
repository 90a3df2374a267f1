package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aleister1102/filecompare/internal/models"
	"github.com/aleister1102/filecompare/internal/monitor"
	"github.com/aleister1102/filecompare/internal/server"
)

func (a *app) runCompare(ctx context.Context, flags AppFlags, out io.Writer) error {
	result, err := a.orchestrator.CompareFilePaths(ctx, flags.Files[0], flags.Files[1], a.comparisonConfig(flags))
	if err != nil {
		return err
	}
	if flags.JSONOutput {
		return writeJSON(out, result)
	}
	printResult(out, result)
	return nil
}

func (a *app) runServe(ctx context.Context) error {
	srv := server.NewServer(a.cfg.ServerConfig, a.cfg.ComparisonConfig, a.orchestrator, a.dispatcher, a.logger)
	return srv.ListenAndServe(ctx)
}

func (a *app) runWatch(ctx context.Context, flags AppFlags, out io.Writer) error {
	svc, err := monitor.NewFileMonitorService(a.cfg.MonitorConfig, a.orchestrator, flags.Files[0], flags.Files[1], a.comparisonConfig(flags), a.logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Run(ctx) }()

	for cycle := range svc.Results() {
		if cycle.Err != nil {
			fmt.Fprintf(out, "[%s] comparison failed: %v\n", cycle.CycleID, cycle.Err)
			continue
		}
		if flags.JSONOutput {
			if err := writeJSON(out, cycle.Result); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(out, "[%s] %s\n", cycle.CycleID, summaryLine(cycle.Result.Stats))
	}
	return <-errCh
}

func (a *app) runHistory(ctx context.Context, flags AppFlags, out io.Writer) error {
	if flags.ClearHistory {
		if err := a.orchestrator.ClearHistory(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "History cleared.")
		return nil
	}

	entries, err := a.orchestrator.History(ctx)
	if err != nil {
		return err
	}
	if flags.JSONOutput {
		return writeJSON(out, entries)
	}
	printHistory(out, entries)
	return nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func summaryLine(stats models.ComparisonStats) string {
	return fmt.Sprintf("similarity %.1f%%, +%d -%d =%d (A: %d lines, B: %d lines)",
		stats.Similarity*100, stats.Added, stats.Deleted, stats.Unchanged, stats.TotalA, stats.TotalB)
}

func printResult(out io.Writer, result models.ComparisonResult) {
	fmt.Fprintf(out, "--- %s\n+++ %s\n", result.FileA.Name, result.FileB.Name)
	for _, line := range result.Lines {
		switch line.Type {
		case models.LineAdded:
			fmt.Fprintf(out, "+ %s\n", deref(line.Right))
		case models.LineDeleted:
			fmt.Fprintf(out, "- %s\n", deref(line.Left))
		default:
			fmt.Fprintf(out, "  %s\n", deref(line.Right))
		}
	}
	fmt.Fprintln(out, summaryLine(result.Stats))
}

func printHistory(out io.Writer, entries []models.ComparisonResult) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No comparisons in history.")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s  %s  %s vs %s  %.1f%%\n",
			e.ID,
			time.UnixMilli(e.CreatedAt).Format(time.RFC3339),
			e.FileA.Name, e.FileB.Name,
			e.Stats.Similarity*100)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
