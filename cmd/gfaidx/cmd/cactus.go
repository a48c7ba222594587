package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gfa_index/pkg/gfa"
	"gfa_index/pkg/graph"
	"gfa_index/pkg/pathindex"
	"gfa_index/pkg/spoke"
)

var cactusFromPaths bool

var cactusCmd = &cobra.Command{
	Use:   "cactus <input.gfa>",
	Short: "Build the cactus graph of a GFA file and print its statistics",
	Long: `Group segment endpoints into hubs using the L lines of the GFA file,
then collapse every 3-edge-connected component of the hub graph into a
single vertex. Statistics are printed as JSON.

With --from-paths, adjacencies are taken from consecutive path steps
instead of L lines. A file with no L lines always uses path steps.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		idx, err := pathindex.FromGFA(ctx, args[0])
		if err != nil {
			return err
		}

		var edges []graph.Edge
		if !cactusFromPaths {
			edges, err = readLinks(cmd, args[0], idx)
			if err != nil {
				return err
			}
		}

		var sg *spoke.SpokeGraph
		if len(edges) == 0 {
			logrus.Info("Building spoke graph from path steps")
			sg, err = spoke.NewFromPaths(ctx, idx)
		} else {
			logrus.WithFields(logrus.Fields{
				"links":      len(edges),
				"components": graph.ConnectedComponents(idx.NodeCount(), edges),
			}).Info("Building spoke graph from links")
			sg, err = spoke.New(ctx, idx.NodeCount(), spoke.FromEdges(edges))
		}
		if err != nil {
			return err
		}

		_, stats, err := spoke.BuildCactus(ctx, sg)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func readLinks(cmd *cobra.Command, path string, idx *pathindex.PathIndex) ([]graph.Edge, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lo, hi := idx.SegmentIDRange()
	return gfa.ReadLinks(cmd.Context(), f, func(id uint32) (graph.Node, error) {
		if id < lo || id > hi {
			return 0, fmt.Errorf("link references segment %d outside %d..%d", id, lo, hi)
		}
		return graph.Node(id - lo), nil
	})
}

func init() {
	cactusCmd.Flags().BoolVar(&cactusFromPaths, "from-paths", false, "derive adjacencies from path steps instead of L lines")
	rootCmd.AddCommand(cactusCmd)
}
