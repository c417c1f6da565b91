package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"accrual/config"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the accrual job
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	reader        sdkmetric.Reader // overrides the configured exporter when set
	initialized   bool
	recording     bool
	mu            sync.RWMutex

	// Metric instruments
	accountsCounter   metric.Int64Counter
	interestHistogram metric.Float64Histogram
	runsCounter       metric.Int64Counter
	runDurationHist   metric.Float64Histogram
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled && mp.reader == nil {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	reader := mp.reader
	if reader == nil {
		var exporter sdkmetric.Exporter
		switch mp.config.OTelExporterType {
		case "console":
			exporter, err = stdoutmetric.New()
			if err != nil {
				return fmt.Errorf("failed to create console exporter: %w", err)
			}
			log.Info("Using console metric exporter")

		case "otlp":
			dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			exporter, err = otlpmetricgrpc.New(dialCtx,
				otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
				otlpmetricgrpc.WithInsecure(),
			)
			if err != nil {
				return fmt.Errorf("failed to create OTLP exporter: %w", err)
			}
			log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

		case "none":
			log.Info("Metrics export disabled (exporter_type='none')")
			mp.initialized = true
			return nil

		default:
			return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
		}

		reader = sdkmetric.NewPeriodicReader(
			exporter,
			sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
		)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	if mp.reader == nil {
		otel.SetMeterProvider(mp.meterProvider)
	}

	mp.meter = mp.meterProvider.Meter("interest-accrual")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.recording = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.accountsCounter, err = mp.meter.Int64Counter(
		AccountsEvaluatedTotal,
		metric.WithDescription("Accounts evaluated by accrual runs, by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create accounts counter: %w", err)
	}

	mp.interestHistogram, err = mp.meter.Float64Histogram(
		InterestAccruedAmount,
		metric.WithDescription("Interest credited to a single account"),
		metric.WithUnit("{currency}"),
		metric.WithExplicitBucketBoundaries(0.01, 0.1, 1, 5, 10, 50, 100, 500, 1000, 5000),
	)
	if err != nil {
		return fmt.Errorf("failed to create interest histogram: %w", err)
	}

	mp.runsCounter, err = mp.meter.Int64Counter(
		RunsTotal,
		metric.WithDescription("Accrual runs, by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create runs counter: %w", err)
	}

	mp.runDurationHist, err = mp.meter.Float64Histogram(
		RunDuration,
		metric.WithDescription("Duration of accrual runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300),
	)
	if err != nil {
		return fmt.Errorf("failed to create run duration histogram: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.recording = false
	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordAccountOutcome counts one evaluated account
func (mp *MetricsProvider) RecordAccountOutcome(status string) {
	if !mp.isEnabled() {
		return
	}

	mp.accountsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelStatus, status)),
	)
}

// RecordInterestAccrued records the interest credited to one account
func (mp *MetricsProvider) RecordInterestAccrued(amount decimal.Decimal) {
	if !mp.isEnabled() {
		return
	}

	mp.interestHistogram.Record(context.Background(), amount.InexactFloat64())
}

// RecordRun records a finished run with its outcome and duration
func (mp *MetricsProvider) RecordRun(outcome string, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(attribute.String(LabelOutcome, outcome))
	mp.runsCounter.Add(context.Background(), 1, attrs)
	mp.runDurationHist.Record(context.Background(), duration.Seconds(), attrs)
}

// isEnabled reports whether instruments exist and the provider is live
func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.recording
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
