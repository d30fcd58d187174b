package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	cgrelay "github.com/wagiedev/cgsdk-relay"
	"github.com/wagiedev/cgsdk-relay/internal/health"
)

const metricsShutdownTimeout = 2 * time.Second

// services runs the optional health and metrics endpoints next to the relay.
type services struct {
	log      *slog.Logger
	registry *prometheus.Registry
	health   *health.Server

	cancel context.CancelFunc
	eg     *errgroup.Group
}

func newServices(log *slog.Logger, cfg Config) *services {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &services{
		log:      log.With("component", "services"),
		registry: registry,
	}

	if cfg.Health.Socket != "" {
		s.health = health.NewServer(log)
	}

	return s
}

// start launches the configured endpoints. The metrics listener is bound
// before start returns so a busy address fails the command.
func (s *services) start(ctx context.Context, cfg Config) error {
	ctx, s.cancel = context.WithCancel(ctx)
	s.eg, ctx = errgroup.WithContext(ctx)

	if s.health != nil {
		s.eg.Go(func() error {
			return s.health.Serve(ctx, cfg.Health.Socket)
		})
	}

	if cfg.Metrics.Addr != "" {
		var lc net.ListenConfig

		ln, err := lc.Listen(ctx, "tcp", cfg.Metrics.Addr)
		if err != nil {
			s.cancel()

			return err
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		s.log.Info("Serving metrics", "addr", ln.Addr().String())

		s.eg.Go(func() error {
			if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			return nil
		})

		s.eg.Go(func() error {
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
			defer cancel()

			return srv.Shutdown(shutdownCtx)
		})
	}

	return nil
}

// onStateChange forwards supervisor state to the health endpoint.
func (s *services) onStateChange(_, to cgrelay.State) {
	if s.health != nil {
		s.health.SetState(to)
	}
}

// stop shuts the endpoints down and waits for them.
func (s *services) stop() error {
	if s.cancel == nil {
		return nil
	}

	s.cancel()

	return s.eg.Wait()
}
