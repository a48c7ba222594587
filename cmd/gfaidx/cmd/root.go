package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gfa_index/pkg/config"
	"gfa_index/pkg/pathindex"
)

var (
	logLevel  string
	indexPath string
	gfaPath   string
)

var rootCmd = &cobra.Command{
	Use:   "gfaidx",
	Short: "Pangenome path index for GFA graphs",
	Long: `gfaidx builds a coordinate index over the segments and paths of a GFA v1
pangenome graph and answers position, interval and membership queries
against it.

An index can be built once into a snapshot file and loaded by the serve,
query and mcp commands, or built on the fly from --gfa.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		return config.SetupLogging(logLevel)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.LogLevel(), "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&indexPath, "index", "i", config.IndexPath(), "path to the index snapshot")
	rootCmd.PersistentFlags().StringVarP(&gfaPath, "gfa", "g", "", "build the index from this GFA file instead of loading --index")
}

// loadIndex builds the index from --gfa when given, otherwise reads the
// snapshot at --index.
func loadIndex(ctx context.Context) (*pathindex.PathIndex, error) {
	start := time.Now()
	var (
		idx *pathindex.PathIndex
		err error
	)
	if gfaPath != "" {
		logrus.WithField("gfa", gfaPath).Info("Building index")
		idx, err = pathindex.FromGFA(ctx, gfaPath)
	} else {
		logrus.WithField("index", indexPath).Info("Loading index")
		idx, err = pathindex.ReadSnapshot(indexPath)
	}
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"segments": idx.NodeCount(),
		"paths":    idx.PathCount(),
		"length":   idx.PangenomeLen(),
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Info("Index ready")
	return idx, nil
}
