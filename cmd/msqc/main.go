package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"msqc/internal/config"
	"msqc/internal/qclog"
)

var (
	flagVerbose bool

	logger *zap.SugaredLogger
)

// version is overridden at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "msqc",
	Short: "msqc - quality control reports for mass spectrometry proteomics runs",
	Long: `msqc reads MaxQuant txt output or an mzTab file, computes per-sample
quality metrics, and writes a report bundle: score heatmap, interchange
document, and rendered HTML/XLSX reports.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the msqc version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("msqc", version)
	},
}

// initLogger builds the process logger from configuration; --verbose
// forces debug level.
func initLogger(cfg config.LoggingConfig) error {
	if flagVerbose {
		cfg.Level = "debug"
	}
	l, err := qclog.New(cfg)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
