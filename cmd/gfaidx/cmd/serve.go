package cmd

import (
	"github.com/spf13/cobra"

	"gfa_index/pkg/api"
	"gfa_index/pkg/config"
	"gfa_index/pkg/query"
)

var (
	serveAddr       string
	serveCORSOrigin string
	serveMaxSteps   int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve index queries over HTTP",
	Long: `Load the index and answer queries on a JSON HTTP API. Prometheus
metrics are exposed on /metrics.

Routes:
  GET /api/v1/health
  GET /api/v1/stats
  GET /api/v1/nodes/{node}
  GET /api/v1/nodes/{node}/paths
  GET /api/v1/pos/{pos}
  GET /api/v1/paths/{name}/steps?start=&end=
  GET /api/v1/paths/{name}/pos/{pos}`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := loadIndex(cmd.Context())
		if err != nil {
			return err
		}
		engine := query.NewEngine(idx)
		engine.SetMaxSteps(serveMaxSteps)

		cfg := api.DefaultConfig(serveAddr)
		cfg.CORSOrigin = serveCORSOrigin

		srv := api.NewServer(cfg, api.NewHandlers(engine))
		return api.ListenAndServe(srv)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", config.Addr(), "listen address")
	serveCmd.Flags().StringVar(&serveCORSOrigin, "cors-origin", "", "CORS allowed origin (empty = same-origin)")
	serveCmd.Flags().IntVar(&serveMaxSteps, "max-steps", query.DefaultMaxSteps, "maximum steps returned by one path range query (0 = unlimited)")
	rootCmd.AddCommand(serveCmd)
}
