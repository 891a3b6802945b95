package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/lexigraph/internal/model"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show dictionary and graph statistics",
	GroupID: "stats",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		top, _ := cmd.Flags().GetInt("top")
		ctx := context.Background()
		o, err := lexiClient.Overview(ctx)
		if err != nil {
			return fmt.Errorf("getting overview: %w", err)
		}
		g, err := lexiClient.GraphStats(ctx, top)
		if err != nil {
			return fmt.Errorf("getting graph stats: %w", err)
		}
		out := struct {
			Overview *model.Overview   `json:"overview"`
			Graph    *model.GraphStats `json:"graph"`
		}{o, g}
		return emit(out, func() {
			printOverview(o)
			printGraphStats(g)
		})
	},
}

var topCmd = &cobra.Command{
	Use:     "top",
	Short:   "Rank words by total degree",
	GroupID: "stats",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		rows, err := lexiClient.TopWords(context.Background(), limit)
		if err != nil {
			return fmt.Errorf("getting top words: %w", err)
		}
		return emit(rows, func() { printTopWords(rows) })
	},
}

var cyclesCmd = &cobra.Command{
	Use:     "cycles",
	Short:   "Show a sample of definition cycles",
	GroupID: "stats",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		r, err := lexiClient.Cycles(context.Background(), limit)
		if err != nil {
			return fmt.Errorf("getting cycles: %w", err)
		}
		return emit(r, func() { printCycles(r) })
	},
}

func init() {
	statsCmd.Flags().Int("top", model.DefaultTopWords, "rows per ranking")
	topCmd.Flags().Int("limit", model.DefaultTopWords, "number of words")
	cyclesCmd.Flags().Int("limit", 0, "maximum cycles (all sampled when 0)")
}
