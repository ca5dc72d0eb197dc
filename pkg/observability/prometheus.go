package observability

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// ErrNoRegistry is returned when metrics are written without a registry.
var ErrNoRegistry = errors.New("metrics dump is not enabled")

// newPrometheusReader creates an OTel reader backed by a private Prometheus
// registry, so repeated calls never conflict on collector registration.
func newPrometheusReader() (*prometheus.Registry, sdkmetric.Reader, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return registry, exporter, nil
}

// WriteMetrics writes everything gathered by reg in the Prometheus text
// exposition format.
func WriteMetrics(w io.Writer, reg *prometheus.Registry) error {
	if reg == nil {
		return ErrNoRegistry
	}

	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))

	for _, mf := range families {
		encErr := enc.Encode(mf)
		if encErr != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), encErr)
		}
	}

	return nil
}

// WriteMetricsFile writes the text exposition to path.
func WriteMetricsFile(path string, reg *prometheus.Registry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}

	writeErr := WriteMetrics(f, reg)
	closeErr := f.Close()

	return errors.Join(writeErr, closeErr)
}
