package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// IngestMetricsMeterName is the name used for the ingestion metrics meter
	IngestMetricsMeterName = "github.com/stacklok/toolhive-catalog-sync/ingest"

	// CatalogMetricsMeterName is the name used for the activation metrics meter
	CatalogMetricsMeterName = "github.com/stacklok/toolhive-catalog-sync/catalog"
)

// IngestMetrics holds the OpenTelemetry instruments for account ingestion
type IngestMetrics struct {
	passDuration  metric.Float64Histogram
	pagesFetched  metric.Int64Counter
	reposUpserted metric.Int64Counter
	reposPruned   metric.Int64Counter
}

// NewIngestMetrics creates a new IngestMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewIngestMetrics(provider metric.MeterProvider) (*IngestMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(IngestMetricsMeterName)

	passDuration, err := meter.Float64Histogram(
		"thv_catalog_ingest_duration_seconds",
		metric.WithDescription("Duration of account ingestion passes in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600),
	)
	if err != nil {
		return nil, err
	}

	pagesFetched, err := meter.Int64Counter(
		"thv_catalog_ingest_pages_total",
		metric.WithDescription("Number of provider pages fetched"),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, err
	}

	reposUpserted, err := meter.Int64Counter(
		"thv_catalog_ingest_repositories_upserted_total",
		metric.WithDescription("Number of repository records upserted"),
		metric.WithUnit("{repository}"),
	)
	if err != nil {
		return nil, err
	}

	reposPruned, err := meter.Int64Counter(
		"thv_catalog_ingest_repositories_pruned_total",
		metric.WithDescription("Number of orphaned repository records deleted"),
		metric.WithUnit("{repository}"),
	)
	if err != nil {
		return nil, err
	}

	return &IngestMetrics{
		passDuration:  passDuration,
		pagesFetched:  pagesFetched,
		reposUpserted: reposUpserted,
		reposPruned:   reposPruned,
	}, nil
}

func accountAttrs(provider, owner string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("owner", owner),
	)
}

// RecordPass records the duration and outcome of one ingestion pass
func (m *IngestMetrics) RecordPass(ctx context.Context, provider, owner string, duration time.Duration, success bool) {
	if m == nil || m.passDuration == nil {
		return
	}

	m.passDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("owner", owner),
		attribute.Bool("success", success),
	))
}

// AddPages counts fetched provider pages
func (m *IngestMetrics) AddPages(ctx context.Context, provider, owner string, n int64) {
	if m == nil || m.pagesFetched == nil {
		return
	}
	m.pagesFetched.Add(ctx, n, accountAttrs(provider, owner))
}

// AddUpserted counts upserted repositories
func (m *IngestMetrics) AddUpserted(ctx context.Context, provider, owner string, n int64) {
	if m == nil || m.reposUpserted == nil {
		return
	}
	m.reposUpserted.Add(ctx, n, accountAttrs(provider, owner))
}

// AddPruned counts deleted orphaned repositories
func (m *IngestMetrics) AddPruned(ctx context.Context, provider, owner string, n int64) {
	if m == nil || m.reposPruned == nil {
		return
	}
	m.reposPruned.Add(ctx, n, accountAttrs(provider, owner))
}

// CatalogMetrics holds the OpenTelemetry instruments for ref activation
type CatalogMetrics struct {
	activationDuration metric.Float64Histogram
	catalogsUpserted   metric.Int64Counter
}

// NewCatalogMetrics creates a new CatalogMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewCatalogMetrics(provider metric.MeterProvider) (*CatalogMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(CatalogMetricsMeterName)

	activationDuration, err := meter.Float64Histogram(
		"thv_catalog_activation_duration_seconds",
		metric.WithDescription("Duration of branch and tag activations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, err
	}

	catalogsUpserted, err := meter.Int64Counter(
		"thv_catalog_entries_upserted_total",
		metric.WithDescription("Number of catalog entries written to the registry"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &CatalogMetrics{
		activationDuration: activationDuration,
		catalogsUpserted:   catalogsUpserted,
	}, nil
}

// RecordActivation records the duration and outcome of an activation pipeline run
func (m *CatalogMetrics) RecordActivation(ctx context.Context, refKind string, duration time.Duration, success bool) {
	if m == nil || m.activationDuration == nil {
		return
	}

	m.activationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("ref_kind", refKind),
		attribute.Bool("success", success),
	))
}

// AddCatalogUpserted counts a catalog entry written for the given catalog type
func (m *CatalogMetrics) AddCatalogUpserted(ctx context.Context, catalogType string) {
	if m == nil || m.catalogsUpserted == nil {
		return
	}
	m.catalogsUpserted.Add(ctx, 1, metric.WithAttributes(attribute.String("type", catalogType)))
}
