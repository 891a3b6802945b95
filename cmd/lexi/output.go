package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/lexigraph/internal/model"
	"github.com/alfredjeanlab/lexigraph/internal/ui"
)

// stdout is where commands print. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(stdout, string(data))
	return nil
}

// emit prints v as JSON under --json, otherwise calls text.
func emit(v any, text func()) error {
	if jsonOutput {
		return printJSON(v)
	}
	text()
	return nil
}

const labelWidth = 13

func field(label, value string) {
	fmt.Fprintf(stdout, "%-*s%s\n", labelWidth, label+":", value)
}

func wordList(words []string) string {
	if len(words) == 0 {
		return ui.RenderMuted("(none)")
	}
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = ui.RenderWord(w)
	}
	return strings.Join(out, ", ")
}

func printWordDetail(d *model.WordDetail) {
	fmt.Fprintln(stdout, ui.RenderWord(d.Word))
	if d.Pronunciation != "" {
		fmt.Fprintln(stdout, ui.RenderMuted("/"+d.Pronunciation+"/"))
	}
	indent := strings.Repeat(" ", labelWidth)
	field("Definition", ui.Wrap(d.Definition, ui.TerminalWidth()-labelWidth, indent))
	field("Length", strconv.Itoa(d.DefinitionLength))
	field("Links to", wordList(d.LinkedWords))
	field("In / Out", fmt.Sprintf("%d / %d", d.InDegree, d.OutDegree))
	field("Centrality", strconv.Itoa(d.DegreeCentrality))
	field("In/Out ratio", d.InOutRatio.String())
}

func printNeighborhood(n *model.Neighborhood) {
	fmt.Fprintf(stdout, "%s within %d hop(s): %d word(s)\n", ui.RenderWord(n.Word), n.Depth, n.Total)
	for hop := 1; hop <= n.Depth; hop++ {
		field(fmt.Sprintf("  %d", hop), wordList(n.Neighbors[strconv.Itoa(hop)]))
	}
}

func printOverview(o *model.Overview) {
	fmt.Fprintln(stdout, ui.RenderAccent("Dictionary:"))
	field("  Words", strconv.Itoa(o.TotalWords))
	field("  Avg length", strconv.FormatFloat(o.AverageDefinitionLength, 'f', 2, 64))
	field("  Avg degree", strconv.FormatFloat(o.AverageDegreeCentrality, 'f', 2, 64))
	field("  Version", o.Version)
}

func printGraphStats(g *model.GraphStats) {
	fmt.Fprintln(stdout, ui.RenderAccent("Graph:"))
	field("  Nodes", strconv.Itoa(g.Nodes))
	field("  Edges", strconv.Itoa(g.Edges))
	field("  Avg in", strconv.FormatFloat(g.AverageInDegree, 'f', 2, 64))
	field("  Avg out", strconv.FormatFloat(g.AverageOutDegree, 'f', 2, 64))
	field("  Cycles", strconv.Itoa(g.CycleCount))
	field("  Largest component", strconv.Itoa(g.LargestComponentSize))

	printRanking("Most referenced:", g.TopWordsByInDegree)
	printRanking("Most referencing:", g.TopWordsByOutDegree)
	if len(g.SampleCycles) > 0 {
		fmt.Fprintln(stdout, ui.RenderAccent("Sample cycles:"))
		for _, c := range g.SampleCycles {
			fmt.Fprintln(stdout, "  "+cyclePath(c))
		}
	}
}

func printRanking(title string, rows []model.WordCount) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintln(stdout, ui.RenderAccent(title))
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	for i, r := range rows {
		fmt.Fprintf(w, "  %d.\t%s\t%d\n", i+1, r.Word, r.Count)
	}
	w.Flush()
}

func printTopWords(rows []model.DegreeRank) {
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tWORD\tTOTAL\tIN\tOUT")
	for i, r := range rows {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\n", i+1, r.Word, r.TotalDegree, r.InDegree, r.OutDegree)
	}
	w.Flush()
}

func printCycles(r *model.CycleReport) {
	for _, c := range r.Cycles {
		if len(c) == 0 {
			continue
		}
		fmt.Fprintln(stdout, cyclePath(c))
	}
	summary := fmt.Sprintf("%d cycle(s)", r.TotalCycles)
	if r.Truncated {
		summary += fmt.Sprintf(", showing %d", len(r.Cycles))
	}
	fmt.Fprintln(stdout, ui.RenderMuted(summary))
}

// cyclePath renders a cycle as a path back to its first word.
func cyclePath(c []string) string {
	if len(c) == 0 {
		return ""
	}
	return strings.Join(append(slices.Clone(c), c[0]), " → ")
}

func printRebuildResult(r *model.RebuildResult) {
	fmt.Fprintf(stdout, "Rebuilt %s: %d words, %d links, %d cycle(s) in %s\n",
		r.Version, r.Words, r.Links, r.CycleCount, r.Duration.Round(time.Millisecond))
}
