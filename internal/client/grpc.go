package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCHealthClient queries the standard gRPC health service of a lexigraph
// server.
type GRPCHealthClient struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

// NewGRPCHealthClient connects to the given gRPC address.
func NewGRPCHealthClient(addr string) (*GRPCHealthClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCHealthClient{
		conn:   conn,
		health: healthpb.NewHealthClient(conn),
	}, nil
}

func (c *GRPCHealthClient) Close() error {
	return c.conn.Close()
}

// Check returns the serving status of service, e.g. "SERVING". An empty
// service asks about the server as a whole.
func (c *GRPCHealthClient) Check(ctx context.Context, service string) (string, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return "", err
	}
	return resp.GetStatus().String(), nil
}
