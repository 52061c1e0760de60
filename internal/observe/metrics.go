// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, distributed tracing, structured logging, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Tablemuse metrics.
const meterName = "github.com/woodwose/tablemuse"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// LLMDuration tracks LLM completion latency, prompt to final token.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// CharacterResponses counts generated character responses. Use with attribute:
	//   attribute.String("character", ...)
	CharacterResponses metric.Int64Counter

	// FallbackLines counts canned offline lines served in place of a live
	// response. Use with attribute: attribute.String("character", ...)
	FallbackLines metric.Int64Counter

	// TurnsAdvanced counts turn-order advances, including wraparounds.
	TurnsAdvanced metric.Int64Counter

	// --- Gauges ---

	// ActiveStreams tracks the number of in-flight response streams.
	ActiveStreams metric.Int64UpDownCounter

	// RosterSize tracks the number of characters currently on the roster.
	RosterSize metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// rosterMu guards rosterSize, the last absolute value pushed to the
	// RosterSize gauge via SetRosterSize.
	rosterMu   sync.Mutex
	rosterSize int64
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// provider round-trips, from sub-second cache hits to slow completions.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.LLMDuration, err = m.Float64Histogram("tablemuse.llm.duration",
		metric.WithDescription("Latency of LLM completion."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("tablemuse.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.STTDuration, err = m.Float64Histogram("tablemuse.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("tablemuse.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("tablemuse.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.CharacterResponses, err = m.Int64Counter("tablemuse.character.responses",
		metric.WithDescription("Total generated character responses by character name."),
	); err != nil {
		return nil, err
	}
	if met.FallbackLines, err = m.Int64Counter("tablemuse.character.fallback_lines",
		metric.WithDescription("Total canned offline lines served by character name."),
	); err != nil {
		return nil, err
	}
	if met.TurnsAdvanced, err = m.Int64Counter("tablemuse.turn.advances",
		metric.WithDescription("Total turn-order advances."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveStreams, err = m.Int64UpDownCounter("tablemuse.active_streams",
		metric.WithDescription("Number of in-flight response streams."),
	); err != nil {
		return nil, err
	}
	if met.RosterSize, err = m.Int64UpDownCounter("tablemuse.roster.size",
		metric.WithDescription("Number of characters currently on the roster."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("tablemuse.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest records a provider request counter increment with the
// standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordCharacterResponse records a generated character response.
func (m *Metrics) RecordCharacterResponse(ctx context.Context, character string) {
	m.CharacterResponses.Add(ctx, 1,
		metric.WithAttributes(attribute.String("character", character)),
	)
}

// SetRosterSize moves the roster gauge to an absolute size by recording the
// delta from the last reported value. Safe to call from concurrent roster
// mutations.
func (m *Metrics) SetRosterSize(ctx context.Context, size int64) {
	m.rosterMu.Lock()
	delta := size - m.rosterSize
	m.rosterSize = size
	m.rosterMu.Unlock()
	if delta != 0 {
		m.RosterSize.Add(ctx, delta)
	}
}

// RecordFallbackLine records a canned offline line served for character.
func (m *Metrics) RecordFallbackLine(ctx context.Context, character string) {
	m.FallbackLines.Add(ctx, 1,
		metric.WithAttributes(attribute.String("character", character)),
	)
}
