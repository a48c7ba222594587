package cmd

import (
	"errors"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gfa_index/pkg/pathindex"
)

var buildCmd = &cobra.Command{
	Use:   "build <input.gfa>",
	Short: "Index a GFA file and write a snapshot",
	Long: `Scan the S and P lines of a GFA v1 file and write the resulting path
index to --index.

Segment ids must be tightly packed integers: the ids present must form one
contiguous range.

Example:
  gfaidx build graph.gfa --index graph.gfaidx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if gfaPath != "" {
			return errors.New("build takes the GFA file as an argument, not --gfa")
		}
		start := time.Now()

		idx, err := pathindex.FromGFA(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		logrus.WithField("output", indexPath).Info("Writing snapshot")
		if err := pathindex.WriteSnapshot(indexPath, idx); err != nil {
			return err
		}

		info, err := os.Stat(indexPath)
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"segments": idx.NodeCount(),
			"paths":    idx.PathCount(),
			"size_mb":  float64(info.Size()) / (1024 * 1024),
			"elapsed":  time.Since(start).Round(time.Millisecond),
		}).Info("Done")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
