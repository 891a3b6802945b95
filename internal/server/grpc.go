package server

import (
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewGRPCServer returns a gRPC server exposing s's health service and
// reflection. A non-empty authToken is required on every non-health RPC.
func NewGRPCServer(s *LexiconServer, authToken string) *grpc.Server {
	srv := grpc.NewServer(grpc.UnaryInterceptor(s.unaryInterceptor(authToken)))
	healthpb.RegisterHealthServer(srv, s.health)
	reflection.Register(srv)
	return srv
}
