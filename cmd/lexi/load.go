package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/lexigraph/internal/config"
	"github.com/alfredjeanlab/lexigraph/internal/loader"
	"github.com/alfredjeanlab/lexigraph/internal/model"
)

type loadReport struct {
	File       string               `json:"file"`
	Loaded     int                  `json:"loaded"`
	Duplicates int                  `json:"duplicates"`
	Words      int                  `json:"store_words"`
	Links      int                  `json:"store_links"`
	Rebuild    *model.RebuildResult `json:"rebuild,omitempty"`
}

var loadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Load dictionary entries from a JSONL or YAML file into the store",
	Long: `Load dictionary entries into the configured store.

Files ending in .jsonl or .ndjson hold one {"word", "definition",
"pronunciation"} object per line; .yaml and .yml files hold a list of the
same mappings. Entries replace existing ones with the same word. Repeated
words within the file keep their first occurrence.`,
	GroupID:           "system",
	Args:              cobra.ExactArgs(1),
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		rebuild, _ := cmd.Flags().GetBool("rebuild")

		res, err := loader.LoadFile(args[0])
		if err != nil {
			return err
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

		n, err := st.PutEntries(ctx, res.Entries)
		if err != nil {
			return fmt.Errorf("storing entries: %w", err)
		}

		rep := loadReport{File: args[0], Loaded: n, Duplicates: res.Duplicates}
		if rebuild {
			out, err := rebuildLocal(ctx, cfg, st, logger)
			if err != nil {
				return err
			}
			rep.Rebuild = out.Result
		}
		if rep.Words, err = st.CountEntries(ctx); err != nil {
			return err
		}
		if rep.Links, err = st.CountLinks(ctx); err != nil {
			return err
		}
		return emit(rep, func() {
			fmt.Fprintf(stdout, "Loaded %d entries from %s", n, rep.File)
			if rep.Duplicates > 0 {
				fmt.Fprintf(stdout, " (%d duplicate(s) skipped)", rep.Duplicates)
			}
			fmt.Fprintln(stdout)
			fmt.Fprintf(stdout, "Store holds %d words and %d links\n", rep.Words, rep.Links)
			if rep.Rebuild != nil {
				printRebuildResult(rep.Rebuild)
			}
		})
	},
}

func init() {
	loadCmd.Flags().Bool("rebuild", false, "rebuild the link table after loading")
}
