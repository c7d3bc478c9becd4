package main

import (
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"

	"msqc/adapters/history"
	"msqc/domain/core"
	"msqc/internal/config"
)

var (
	flagHistoryDB    string
	flagHistoryLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the run history database",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent report runs, newest first",
	RunE:  runHistoryList,
}

var historyTrendCmd = &cobra.Command{
	Use:   "trend <metric-id>",
	Short: "Show one metric's score across recent runs, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryTrend,
}

func init() {
	historyCmd.PersistentFlags().StringVar(&flagHistoryDB, "db", config.DefaultHistoryFile, "history database file")
	historyCmd.PersistentFlags().IntVar(&flagHistoryLimit, "limit", 0, "maximum rows to show (0 uses the store default)")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyTrendCmd)
}

// openHistory opens an existing history database. Unlike a report run it
// never creates one, inspecting a missing database is an error.
func openHistory(path string) (*history.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to access history database: %w", err)
	}
	return history.Open(path)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory(flagHistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), flagHistoryLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	fmt.Printf("%-38s  %-20s  %-7s  %s\n", "RUN", "FINISHED", "SCORED", "SOURCE")
	for _, run := range runs {
		scored := 0
		for _, s := range run.Scores {
			if !math.IsNaN(s.Score) {
				scored++
			}
		}
		fmt.Printf("%-38s  %-20s  %3d/%-3d  %s\n",
			run.RunID,
			run.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			scored, len(run.Scores),
			run.Source)
	}
	return nil
}

func runHistoryTrend(cmd *cobra.Command, args []string) error {
	store, err := openHistory(flagHistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	id := core.MetricID(args[0])
	points, err := store.Trend(cmd.Context(), id, flagHistoryLimit)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		fmt.Printf("no scores recorded for %s\n", id)
		return nil
	}

	fmt.Printf("%-38s  %-20s  %s\n", "RUN", "FINISHED", "SCORE")
	for _, p := range points {
		fmt.Printf("%-38s  %-20s  %.3f\n",
			p.RunID,
			p.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			p.Score)
	}
	return nil
}
