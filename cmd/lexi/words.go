package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/lexigraph/internal/client"
	"github.com/alfredjeanlab/lexigraph/internal/ui"
)

var showCmd = &cobra.Command{
	Use:     "show <word>",
	Short:   "Show a word with its links and degree metrics",
	GroupID: "words",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := lexiClient.Word(context.Background(), args[0])
		if client.IsNotFound(err) {
			return fmt.Errorf("no entry for %q", args[0])
		}
		if err != nil {
			return fmt.Errorf("getting word %s: %w", args[0], err)
		}
		return emit(d, func() { printWordDetail(d) })
	},
}

var searchCmd = &cobra.Command{
	Use:     "search <prefix>",
	Short:   "List words starting with a prefix",
	GroupID: "words",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		resp, err := lexiClient.Search(context.Background(), args[0], limit)
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}
		return emit(resp, func() {
			for _, w := range resp.Results {
				fmt.Fprintln(stdout, w)
			}
			fmt.Fprintln(stdout, ui.RenderMuted(strconv.Itoa(resp.Count)+" match(es)"))
		})
	},
}

var neighborsCmd = &cobra.Command{
	Use:     "neighbors <word>",
	Short:   "List words reachable from a word within N hops",
	GroupID: "words",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		depth, _ := cmd.Flags().GetInt("depth")
		n, err := lexiClient.Neighbors(context.Background(), args[0], depth)
		if err != nil {
			return fmt.Errorf("getting neighbors of %s: %w", args[0], err)
		}
		return emit(n, func() { printNeighborhood(n) })
	},
}

func init() {
	searchCmd.Flags().Int("limit", 0, "maximum results (server default when 0)")
	neighborsCmd.Flags().Int("depth", 1, "hops to follow (1-3)")
}
