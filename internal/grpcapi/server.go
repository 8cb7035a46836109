// Package grpcapi exposes the standard gRPC health service for the dashboard
// process and its inference backend.
package grpcapi

import (
	"context"
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Health service names. The empty name reports the whole process.
const (
	ServiceVisitrack = "visitrack"
	ServiceInference = "visitrack.inference"
)

type Dependencies struct {
	Logger *log.Logger
	Addr   string

	InferenceAvailable bool
}

type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	logger     *log.Logger
	addr       string
}

func NewServer(d Dependencies) *Server {
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	s := &Server{grpcServer: gs, health: hs, logger: d.Logger, addr: d.Addr}
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceVisitrack, healthpb.HealthCheckResponse_SERVING)
	s.SetInferenceAvailable(d.InferenceAvailable)
	return s
}

// SetInferenceAvailable flips the inference service between SERVING and
// NOT_SERVING.
func (s *Server) SetInferenceAvailable(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceInference, st)
}

func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	if s.logger != nil {
		s.logger.Printf("grpc listening on %s", lis.Addr())
	}
	return s.grpcServer.Serve(lis)
}

// Shutdown marks every service NOT_SERVING and drains in-flight RPCs. If ctx
// expires first the server is stopped hard.
func (s *Server) Shutdown(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpcServer.Stop()
		<-done
	}
}
