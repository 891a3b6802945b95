package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/lexigraph/internal/client"
	"github.com/alfredjeanlab/lexigraph/internal/ui"
)

var (
	serverAddr string
	httpURL    string
	authToken  string
	jsonOutput bool

	lexiClient client.LexiconClient
)

func envOr(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// noClient overrides the root PersistentPreRunE for commands that work on
// the local store instead of a running server.
func noClient(*cobra.Command, []string) error { return nil }

var rootCmd = &cobra.Command{
	Use:           "lexi <command>",
	Short:         "Explore the word relationship graph of a dictionary",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		lexiClient = client.NewHTTPClient(httpURL, authToken)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if lexiClient != nil {
			lexiClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", envOr("LEXIGRAPH_HTTP_URL", "http://localhost:8080"), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", envOr("LEXIGRAPH_SERVER", "localhost:9090"), "gRPC server address")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("LEXIGRAPH_AUTH_TOKEN"), "bearer token for the server")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "words", Title: "Words:"},
		&cobra.Group{ID: "stats", Title: "Statistics:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Words
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(neighborsCmd)

	// Statistics
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(topCmd)
	rootCmd.AddCommand(cyclesCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderWarn("Error: ")+err.Error())
		os.Exit(1)
	}
}
