// Package metrics exposes per-role counters in the Prometheus format.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
	"github.com/eliteGoblin/focusd/mailslot/internal/usecase"
)

const namespace = "mailslot"

// Recorder counts loop events of one role. It implements usecase.Recorder.
type Recorder struct {
	detections prometheus.Counter
	suppressed prometheus.Counter
	published  *prometheus.CounterVec
	actions    *prometheus.CounterVec
	loopErrors *prometheus.CounterVec
	stops      *prometheus.CounterVec
}

// New registers the counters of role with reg.
func New(reg prometheus.Registerer, role domain.Role) (*Recorder, error) {
	labels := prometheus.Labels{"role": string(role)}
	r := &Recorder{
		detections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "detections_total",
			Help:        "Positive detections, including suppressed ones.",
			ConstLabels: labels,
		}),
		suppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "suppressed_total",
			Help:        "Detections dropped by the cooldown.",
			ConstLabels: labels,
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "signals_published_total",
			Help:        "Signals written, by channel.",
			ConstLabels: labels,
		}, []string{"channel"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "actions_total",
			Help:        "UI actions attempted, by action and result.",
			ConstLabels: labels,
		}, []string{"action", "result"}),
		loopErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "loop_errors_total",
			Help:        "Failed loop iterations, by error kind.",
			ConstLabels: labels,
		}, []string{"kind"}),
		stops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "stops_total",
			Help:        "Stop conditions met, by reason.",
			ConstLabels: labels,
		}, []string{"reason"}),
	}

	for _, c := range []prometheus.Collector{r.detections, r.suppressed, r.published, r.actions, r.loopErrors, r.stops} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) Detection()  { r.detections.Inc() }
func (r *Recorder) Suppressed() { r.suppressed.Inc() }

func (r *Recorder) Published(ch domain.Channel) {
	r.published.WithLabelValues(string(ch)).Inc()
}

func (r *Recorder) Action(action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.actions.WithLabelValues(action, result).Inc()
}

func (r *Recorder) Stopped(reason string) {
	r.stops.WithLabelValues(reason).Inc()
}

func (r *Recorder) LoopError(kind domain.ErrorKind) {
	r.loopErrors.WithLabelValues(kind.String()).Inc()
}

var _ usecase.Recorder = (*Recorder)(nil)

// Handler serves the gathered metrics.
func Handler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return mux
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(g),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
