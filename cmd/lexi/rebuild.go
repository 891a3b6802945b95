package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/lexigraph/internal/config"
	"github.com/alfredjeanlab/lexigraph/internal/lexicon"
	"github.com/alfredjeanlab/lexigraph/internal/model"
	"github.com/alfredjeanlab/lexigraph/internal/store"
)

// rebuildOutcome is what a local rebuild reports. The engine is kept so
// callers can query the freshly published graph.
type rebuildOutcome struct {
	Result *model.RebuildResult `json:"result"`
	engine *lexicon.Engine
}

// rebuildLocal rebuilds the link table of st in-process.
func rebuildLocal(ctx context.Context, cfg *config.Config, st store.Store, logger *slog.Logger) (*rebuildOutcome, error) {
	engine := lexicon.New(st, engineOptions(cfg, st, logger))
	res, err := engine.Rebuild(ctx)
	if err != nil {
		return nil, fmt.Errorf("rebuilding: %w", err)
	}
	return &rebuildOutcome{Result: res, engine: engine}, nil
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the word graph",
	Long: `Ask the server to rebuild the word graph from its store and wait for the
result. With --no-wait the command returns once the rebuild has started.

With --local the rebuild runs in-process against the configured store and
refreshes its link table, without a server.`,
	GroupID: "system",
	Args:    cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if local, _ := cmd.Flags().GetBool("local"); local {
			return nil
		}
		return rootCmd.PersistentPreRunE(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		local, _ := cmd.Flags().GetBool("local")
		noWait, _ := cmd.Flags().GetBool("no-wait")

		if local {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(false)
			st, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			out, err := rebuildLocal(ctx, cfg, st, logger)
			if err != nil {
				return err
			}
			return emit(out.Result, func() { printRebuildResult(out.Result) })
		}

		if noWait {
			st, err := lexiClient.StartRebuild(context.Background())
			if err != nil {
				return fmt.Errorf("starting rebuild: %w", err)
			}
			return emit(st, func() {
				fmt.Fprintf(stdout, "Rebuild started (published version: %s)\n", orNone(st.Version))
			})
		}

		res, err := lexiClient.Rebuild(context.Background())
		if err != nil {
			return fmt.Errorf("rebuilding: %w", err)
		}
		return emit(res, func() { printRebuildResult(res) })
	},
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func init() {
	rebuildCmd.Flags().Bool("local", false, "rebuild in-process against the configured store")
	rebuildCmd.Flags().Bool("no-wait", false, "return once the rebuild has started")
	rebuildCmd.MarkFlagsMutuallyExclusive("local", "no-wait")
}
