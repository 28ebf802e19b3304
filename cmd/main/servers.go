package main

import (
	"context"
	"fmt"
	"net"

	"market-flipper/src/analysis"
	"market-flipper/src/grpc_control"
	"market-flipper/src/logger"
	"market-flipper/src/metrics"
	"market-flipper/src/models"
	"market-flipper/src/server"
)

// -----------------------------------------------------------------------------

type runningServers struct {
	API    *server.FastAPIServer
	Health *grpc_control.HealthService
	logger *logger.Logger
}

// -----------------------------------------------------------------------------

// startServers orchestrates the startup of all server components
func startServers(
	config *models.MConfig,
	analyzer *analysis.AnalysisFacade,
	collector *metrics.Collector,
	appLogger *logger.Logger,
) *runningServers {
	rs := &runningServers{logger: appLogger}

	// 1. REST + WebSocket
	rs.API = server.NewFastAPIServer(config, logger.NewLogger(config, "FastAPIServer"), analyzer.PairTrading, collector.Handler())
	rs.API.Discovery = analyzer.PairDiscovery
	go func() {
		if err := rs.API.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 2. gRPC health
	rs.Health = grpc_control.NewHealthService(config, logger.NewLogger(config, "HealthService"))
	analyzer.AddObserver(rs.Health)

	port := config.GrpcPort
	if port == 0 {
		appLogger.Info("gRPC health server disabled")
		return rs
	}
	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", config.GrpcHost, port))
	if err != nil {
		appLogger.Error("failed to listen for gRPC: %v", err)
		return rs
	}
	go func() {
		if err := rs.Health.Serve(lis); err != nil {
			appLogger.Error("failed to serve gRPC: %v", err)
		}
	}()

	return rs
}

// -----------------------------------------------------------------------------

func (rs *runningServers) Stop(ctx context.Context) {
	if err := rs.API.Stop(ctx); err != nil {
		rs.logger.Error("Server shutdown: %v", err)
	}
	rs.Health.Stop()
}
