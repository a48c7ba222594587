package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"gfa_index/pkg/graph"
	"gfa_index/pkg/query"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a single query against the index",
	Long: `Run one query and print the result, one record per line.

Examples:
  gfaidx query pos 1200
  gfaidx query node 42
  gfaidx query paths 42
  gfaidx query range HG002#1#chr20 10000 20000
  gfaidx query step HG002#1#chr20 15000`,
}

func withEngine(run func(ctx context.Context, e *query.Engine, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		idx, err := loadIndex(cmd.Context())
		if err != nil {
			return err
		}
		return run(cmd.Context(), query.NewEngine(idx), args)
	}
}

func parseBp(s, name string) (graph.Bp, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return graph.Bp(v), nil
}

func parseSegmentID(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid segment id %q: %w", s, err)
	}
	return uint32(v), nil
}

func printStep(s query.Step) {
	orient := '+'
	if s.Reverse {
		orient = '-'
	}
	fmt.Printf("%d\t%d%c\t%d\t%d\n", s.Index, s.SegmentID, orient, s.Offset, s.Length)
}

var queryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print index statistics",
	Args:  cobra.NoArgs,
	RunE: withEngine(func(ctx context.Context, e *query.Engine, _ []string) error {
		s := e.Stats(ctx)
		fmt.Printf("segments\t%d\n", s.Segments)
		fmt.Printf("paths\t%d\n", s.Paths)
		fmt.Printf("pangenome_len\t%d\n", s.PangenomeLen)
		fmt.Printf("segment_ids\t%d..%d\n", s.MinSegmentID, s.MaxSegmentID)
		fmt.Printf("matrix_nnz\t%d\n", s.MatrixNNZ)
		return nil
	}),
}

var queryPosCmd = &cobra.Command{
	Use:   "pos <pos>",
	Short: "Print the segment covering a pangenome position",
	Args:  cobra.ExactArgs(1),
	RunE: withEngine(func(ctx context.Context, e *query.Engine, args []string) error {
		pos, err := parseBp(args[0], "pos")
		if err != nil {
			return err
		}
		span, err := e.NodeAt(ctx, pos)
		if err != nil {
			return err
		}
		fmt.Printf("%d\t%d\t%d\n", span.SegmentID, span.Offset, span.Length)
		return nil
	}),
}

var queryNodeCmd = &cobra.Command{
	Use:   "node <segment-id>",
	Short: "Print the pangenome offset and length of a segment",
	Args:  cobra.ExactArgs(1),
	RunE: withEngine(func(ctx context.Context, e *query.Engine, args []string) error {
		id, err := parseSegmentID(args[0])
		if err != nil {
			return err
		}
		span, err := e.NodeSpan(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("%d\t%d\t%d\n", span.SegmentID, span.Offset, span.Length)
		return nil
	}),
}

var queryPathsCmd = &cobra.Command{
	Use:   "paths <segment-id>",
	Short: "List the paths stepping on a segment",
	Args:  cobra.ExactArgs(1),
	RunE: withEngine(func(ctx context.Context, e *query.Engine, args []string) error {
		id, err := parseSegmentID(args[0])
		if err != nil {
			return err
		}
		paths, err := e.PathsOnNode(ctx, id)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	}),
}

var queryRangeCmd = &cobra.Command{
	Use:   "range <path> <start> <end>",
	Short: "List the steps of a path overlapping [start, end)",
	Args:  cobra.ExactArgs(3),
	RunE: withEngine(func(ctx context.Context, e *query.Engine, args []string) error {
		start, err := parseBp(args[1], "start")
		if err != nil {
			return err
		}
		end, err := parseBp(args[2], "end")
		if err != nil {
			return err
		}
		e.SetMaxSteps(0)
		res, err := e.PathRange(ctx, args[0], start, end)
		if err != nil {
			return err
		}
		for _, s := range res.Steps {
			printStep(s)
		}
		return nil
	}),
}

var queryStepCmd = &cobra.Command{
	Use:   "step <path> <pos>",
	Short: "Print the path step covering a path position",
	Args:  cobra.ExactArgs(2),
	RunE: withEngine(func(ctx context.Context, e *query.Engine, args []string) error {
		pos, err := parseBp(args[1], "pos")
		if err != nil {
			return err
		}
		s, err := e.StepAt(ctx, args[0], pos)
		if err != nil {
			return err
		}
		printStep(*s)
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.AddCommand(queryStatsCmd)
	queryCmd.AddCommand(queryPosCmd)
	queryCmd.AddCommand(queryNodeCmd)
	queryCmd.AddCommand(queryPathsCmd)
	queryCmd.AddCommand(queryRangeCmd)
	queryCmd.AddCommand(queryStepCmd)
}
