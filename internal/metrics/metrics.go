// Package metrics exports bufdev session activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/calvinalkan/bufdev/pkg/bufdev"
)

const namespace = "bufdev"

// Metrics holds the collectors and implements bufdev.Observer.
type Metrics struct {
	Operations   *prometheus.CounterVec
	Bytes        *prometheus.CounterVec
	OpenSessions *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Session operations by kind and result",
			},
			[]string{"op", "result"},
		),
		Bytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bytes_total",
				Help:      "Bytes transferred by direction",
			},
			[]string{"direction"},
		),
		OpenSessions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "open_sessions",
				Help:      "Currently open sessions per instance",
			},
			[]string{"id"},
		),
	}
}

// Observe records ev.
func (m *Metrics) Observe(ev bufdev.Event) {
	m.Operations.WithLabelValues(ev.Op.String(), Result(ev.Err)).Inc()

	if ev.Err != nil {
		return
	}

	id := strconv.Itoa(ev.ID)

	switch ev.Op {
	case bufdev.OpOpen:
		m.OpenSessions.WithLabelValues(id).Inc()
	case bufdev.OpClose:
		m.OpenSessions.WithLabelValues(id).Dec()
	case bufdev.OpRead:
		m.Bytes.WithLabelValues("read").Add(float64(ev.N))
	case bufdev.OpWrite:
		m.Bytes.WithLabelValues("write").Add(float64(ev.N))
	}
}

// Result maps an operation error to a low-cardinality label value.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, bufdev.ErrBusy):
		return "busy"
	case errors.Is(err, bufdev.ErrNoSpace):
		return "no_space"
	case errors.Is(err, bufdev.ErrFault):
		return "fault"
	case errors.Is(err, bufdev.ErrNotFound):
		return "not_found"
	case errors.Is(err, bufdev.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, bufdev.ErrNotSupported):
		return "not_supported"
	case errors.Is(err, bufdev.ErrPermission):
		return "permission"
	case errors.Is(err, bufdev.ErrClosed):
		return "closed"
	default:
		return "error"
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server serves /metrics on a listener until Shutdown.
type Server struct {
	srv *http.Server
	ln  net.Listener
	log *zap.Logger
}

// Listen binds addr and starts serving /metrics in the background.
func (m *Metrics) Listen(addr string, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	s := &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
		log: log,
	}

	go func() {
		err := s.srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()

	log.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
