// Package metrics exposes Prometheus collectors for the rewrite service.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/solatis/dialkeeper/internal/types"
)

const namespace = "dialkeeper"

// Reload results recorded by ObserveReload.
const (
	ReloadOK     = "ok"
	ReloadFailed = "failed"
)

// Metrics holds the service collectors. A nil *Metrics is valid and
// records nothing, so components can run without a registry.
type Metrics struct {
	Rewrites    *prometheus.CounterVec
	RuleReloads *prometheus.CounterVec
	RulesLoaded *prometheus.GaugeVec
	RPCRequests *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Rewrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewrites_total",
			Help:      "Rewrite passes by direction and whether any rule matched.",
		}, []string{"direction", "matched"}),
		RuleReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_reloads_total",
			Help:      "Rule file reloads by result.",
		}, []string{"result"}),
		RulesLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rules_loaded",
			Help:      "Rules in the most recently installed rule set.",
		}, []string{"account_scope", "direction"}),
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "Unary RPCs by method and status code.",
		}, []string{"method", "code"}),
	}

	for _, c := range []prometheus.Collector{m.Rewrites, m.RuleReloads, m.RulesLoaded, m.RPCRequests} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveRewrite counts one rewrite pass.
func (m *Metrics) ObserveRewrite(dir types.Direction, matched bool) {
	if m == nil {
		return
	}
	m.Rewrites.WithLabelValues(dir.String(), strconv.FormatBool(matched)).Inc()
}

// ObserveReload counts one reload attempt.
func (m *Metrics) ObserveReload(err error) {
	if m == nil {
		return
	}
	result := ReloadOK
	if err != nil {
		result = ReloadFailed
	}
	m.RuleReloads.WithLabelValues(result).Inc()
}

// SetRulesLoaded records the size of an installed rule set. Accounts are
// collapsed to "global" or "account" to keep label cardinality bounded.
func (m *Metrics) SetRulesLoaded(account string, dir types.Direction, n int) {
	if m == nil {
		return
	}
	m.RulesLoaded.WithLabelValues(scope(account), dir.String()).Set(float64(n))
}

func scope(account string) string {
	if account == "" {
		return "global"
	}
	return "account"
}

// UnaryInterceptor counts every unary RPC by method and resulting code.
func (m *Metrics) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if m != nil {
			m.RPCRequests.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		}
		return resp, err
	}
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Serve runs the scrape endpoint on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics endpoint listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
