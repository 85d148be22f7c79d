package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "topgrep [file]",
	Short: "Query per-process CPU usage from top batch output",
	Long: `topgrep reads the output of top in batch mode from standard input or a
file and prints the %CPU of the selected processes for every sample, one
tab-separated line per query: timestamp, query and value.

Examples:
  top -b -d 1 | topgrep --pid 42 --command nginx
  topgrep --fold --bucket 10s -c postgres top.log
  topgrep -q pid:1 -q "command:sh -c true" top.log
  topgrep --config topgrep.yaml --nats-url nats://localhost:4222
  TOPGREP_FOLD=true top -b | topgrep -p 1`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	// Define flags
	rootCmd.Flags().UintSliceP("pid", "p", nil, "Process ID to query (repeatable)")
	rootCmd.Flags().StringArrayP("command", "c", nil, "Command line to query (repeatable)")
	rootCmd.Flags().StringArrayP("query", "q", nil, "Query in the form pid:<number> or command:<name> (repeatable)")
	rootCmd.Flags().BoolP("fold", "f", false, "Average values over consecutive samples with the same key")
	rootCmd.Flags().Duration("bucket", 0, "Fold samples by time-of-day bucket instead of equal timestamps")
	rootCmd.Flags().String("time-layout", "15:04:05", "Layout of the top timestamp used for bucketing")
	rootCmd.Flags().StringP("output", "o", "", "Write results to a file instead of standard output")
	rootCmd.Flags().String("config", "", "YAML configuration file")
	rootCmd.Flags().String("nats-url", "", "Also publish results to this NATS server")
	rootCmd.Flags().String("nats-subject", "topgrep.results", "NATS subject for published results")
	rootCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	rootCmd.Flags().String("log-level", "warn", "Log level: debug, info, warn or error")
	rootCmd.Flags().Bool("stats", false, "Print topgrep resource usage at exit")
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")

	// Bind flags to Viper keys (dashes in flags become underscores in viper)
	for _, key := range []string{
		"fold", "bucket", "time-layout", "output", "config", "nats-url",
		"nats-subject", "metrics-addr", "log-level", "stats",
	} {
		if err := viper.BindPFlag(viperKey(key), rootCmd.Flags().Lookup(key)); err != nil {
			log.Fatalf("failed to bind %s: %v", key, err)
		}
	}

	// Configure Viper for environment variables
	viper.SetEnvPrefix("topgrep")
	viper.AutomaticEnv()
}
