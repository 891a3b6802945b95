package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/lexigraph/internal/config"
	lexsync "github.com/alfredjeanlab/lexigraph/internal/sync"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the published graph as JSONL",
	Long: `Write the published graph as JSONL: a header record, a stats record, then
one link record per edge. With --local the graph is rebuilt in-process from
the configured store first.`,
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
		path, _ := cmd.Flags().GetString("output")

		var w io.Writer = stdout
		if path != "" && path != "-" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		if !local {
			if err := lexiClient.Export(context.Background(), w); err != nil {
				return fmt.Errorf("exporting: %w", err)
			}
			return nil
		}

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
		return lexsync.ExportJSONL(out.engine, w)
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	exportCmd.Flags().Bool("local", false, "rebuild from the configured store instead of asking a server")
}
