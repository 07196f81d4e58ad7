package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OpsServer is the operational listener, kept off the public port so
// metrics never share a surface with carrier traffic.
type OpsServer struct {
	server *http.Server
	logger *slog.Logger
}

// NewOpsServer builds the metrics listener.
func NewOpsServer(addr string, logger *slog.Logger) *OpsServer {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &OpsServer{
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger.With("component", "ops"),
	}
}

// Start serves until Shutdown.
func (o *OpsServer) Start() error {
	o.logger.Info("metrics listening", "addr", o.server.Addr)
	if err := o.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains the listener.
func (o *OpsServer) Shutdown(ctx context.Context) error {
	return o.server.Shutdown(ctx)
}
