package cli

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/matzehuels/mltn2v/pkg/observability"
)

// startMetrics installs Prometheus hooks and serves them on addr until the
// returned stop function is called. An empty addr does nothing.
func startMetrics(ctx context.Context, addr string, logger *log.Logger) (stop func()) {
	if addr == "" {
		return func() {}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := observability.NewMetrics(reg)
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := observability.Serve(ctx, addr, observability.Handler(reg), logger); err != nil {
			logger.Warn("metrics server stopped", "addr", addr, "err", err)
		}
	}()

	return func() {
		cancel()
		<-done
		observability.Reset()
	}
}
