package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements PipelineHooks and CacheHooks with Prometheus collectors.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	layers        *prometheus.GaugeVec
	walks         *prometheus.CounterVec
	deadEnds      *prometheus.CounterVec
	tokens        *prometheus.GaugeVec
	cacheOps      *prometheus.CounterVec
	cacheBytes    *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mltn2v_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"stage"}),
		stageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mltn2v_stage_errors_total",
			Help: "Pipeline stages that returned an error",
		}, []string{"stage"}),
		layers: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mltn2v_layers",
			Help: "Layers of the current network by status",
		}, []string{"status"}),
		walks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mltn2v_walks_total",
			Help: "Completed walks by layer-switch probability",
		}, []string{"w"}),
		deadEnds: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mltn2v_dead_ends_total",
			Help: "Walks abandoned at a dead end by layer-switch probability",
		}, []string{"w"}),
		tokens: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mltn2v_embedded_tokens",
			Help: "Tokens in the last trained embedding by layer-switch probability",
		}, []string{"w"}),
		cacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mltn2v_cache_operations_total",
			Help: "Cache lookups and writes",
		}, []string{"key_type", "op"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mltn2v_cache_written_bytes_total",
			Help: "Bytes written to the cache",
		}, []string{"key_type"}),
	}
}

func (m *Metrics) observe(stage string, d time.Duration, err error) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		m.stageErrors.WithLabelValues(stage).Inc()
	}
}

func wLabel(w float64) string { return strconv.FormatFloat(w, 'f', -1, 64) }

func (m *Metrics) OnLoadStart(context.Context, string) {}

func (m *Metrics) OnLoadComplete(_ context.Context, _ string, layers, failures int, d time.Duration, err error) {
	m.layers.WithLabelValues("loaded").Set(float64(layers))
	m.layers.WithLabelValues("unreadable").Set(float64(failures))
	m.observe("load", d, err)
}

func (m *Metrics) OnPreprocessStart(context.Context, int) {}

func (m *Metrics) OnPreprocessComplete(_ context.Context, healthy, failed int, d time.Duration, err error) {
	m.layers.WithLabelValues("healthy").Set(float64(healthy))
	m.layers.WithLabelValues("failed").Set(float64(failed))
	m.observe("preprocess", d, err)
}

func (m *Metrics) OnWalksStart(context.Context, float64) {}

func (m *Metrics) OnWalksComplete(_ context.Context, w float64, walks, deadEnds int, d time.Duration, err error) {
	m.walks.WithLabelValues(wLabel(w)).Add(float64(walks))
	m.deadEnds.WithLabelValues(wLabel(w)).Add(float64(deadEnds))
	m.observe("walks", d, err)
}

func (m *Metrics) OnTrainStart(context.Context, float64) {}

func (m *Metrics) OnTrainComplete(_ context.Context, w float64, tokens int, d time.Duration, err error) {
	m.tokens.WithLabelValues(wLabel(w)).Set(float64(tokens))
	m.observe("train", d, err)
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheOps.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

var (
	_ PipelineHooks = (*Metrics)(nil)
	_ CacheHooks    = (*Metrics)(nil)
)
