// Command health-probe checks the booking service's gRPC health endpoint and
// exits non-zero unless it reports SERVING. It is meant for container
// healthchecks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/md-rashed-zaman/pharmavisit/libs/config"
	"github.com/md-rashed-zaman/pharmavisit/libs/grpcx"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	var (
		addr    = flag.String("addr", config.String("GRPC_ADDR", "localhost:9093"), "grpc health address")
		service = flag.String("service", config.String("SERVICE_NAME", "booking-service"), "service name to check; empty checks the server")
		timeout = flag.Duration("timeout", 3*time.Second, "dial and check timeout")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	status, err := grpcx.Probe(ctx, *addr, *service, grpcx.DialOptions{Timeout: *timeout})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	fmt.Printf("status=%s\n", status)
	if status != healthpb.HealthCheckResponse_SERVING {
		os.Exit(1)
	}
}
