package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/lexigraph/internal/client"
	"github.com/alfredjeanlab/lexigraph/internal/server"
)

// healthReport is the --json output of the health command.
type healthReport struct {
	Transport string `json:"transport"`
	Status    string `json:"status"`
	Ready     bool   `json:"ready"`
	Version   string `json:"version,omitempty"`
	WordCount int    `json:"word_count,omitempty"`
}

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health and readiness of the lexigraph service",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var (
			rep healthReport
			err error
		)
		switch transport {
		case "http":
			rep, err = httpHealth(ctx, lexiClient)
		case "grpc":
			rep, err = grpcHealth(ctx, serverAddr)
		default:
			return fmt.Errorf("unknown transport %q (must be http or grpc)", transport)
		}
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}

		if err := emit(rep, func() {
			fmt.Fprintf(stdout, "Health: %s\n", rep.Status)
			if rep.Ready {
				fmt.Fprintf(stdout, "Ready:  yes (%s)\n", orNone(rep.Version))
			} else {
				fmt.Fprintln(stdout, "Ready:  no")
			}
		}); err != nil {
			return err
		}

		if rep.Status != "ok" && rep.Status != "SERVING" {
			return fmt.Errorf("unhealthy: %s", rep.Status)
		}
		return nil
	},
}

func httpHealth(ctx context.Context, c client.LexiconClient) (healthReport, error) {
	status, err := c.Health(ctx)
	if err != nil {
		return healthReport{}, err
	}
	ready, err := c.Ready(ctx)
	if err != nil {
		return healthReport{}, err
	}
	return healthReport{
		Transport: "http",
		Status:    status,
		Ready:     ready.Status == "ready",
		Version:   ready.Version,
		WordCount: ready.WordCount,
	}, nil
}

func grpcHealth(ctx context.Context, addr string) (healthReport, error) {
	hc, err := client.NewGRPCHealthClient(addr)
	if err != nil {
		return healthReport{}, err
	}
	defer hc.Close()

	status, err := hc.Check(ctx, "")
	if err != nil {
		return healthReport{}, err
	}
	svc, err := hc.Check(ctx, server.ServiceName)
	if err != nil {
		return healthReport{}, err
	}
	return healthReport{Transport: "grpc", Status: status, Ready: svc == "SERVING"}, nil
}

func init() {
	healthCmd.Flags().String("transport", "http", "transport protocol (http or grpc)")
}
