package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// DefaultExportInterval is how often exported metrics are written.
const DefaultExportInterval = time.Minute

// Options configures the meter provider.
type Options struct {
	Version string

	// Export periodically writes metrics to Writer.
	Export   bool
	Writer   io.Writer     // Default: os.Stderr
	Interval time.Duration // Default: DefaultExportInterval

	// Readers are attached in addition to the exporter.
	Readers []sdkmetric.Reader
}

// Provider owns the global meter provider.
type Provider struct {
	mp *sdkmetric.MeterProvider
}

// Setup creates a meter provider and installs it as the global one, so
// recorders created afterwards report through it.
func Setup(opts Options, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", "dictate"),
		attribute.String("service.version", opts.Version),
	)

	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range opts.Readers {
		mpOpts = append(mpOpts, sdkmetric.WithReader(r))
	}

	if opts.Export {
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		interval := opts.Interval
		if interval <= 0 {
			interval = DefaultExportInterval
		}
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("create metric exporter: %w", err)
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)),
		))
		logger.Info("telemetry initialized", "exporter", "stdout", "interval", interval)
	}

	mp := sdkmetric.NewMeterProvider(mpOpts...)
	otel.SetMeterProvider(mp)
	return &Provider{mp: mp}, nil
}

// Shutdown flushes pending exports and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.mp == nil {
		return nil
	}
	return p.mp.Shutdown(ctx)
}
