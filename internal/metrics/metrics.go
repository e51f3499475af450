// Package metrics provides Prometheus metrics for tinymask.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PseudonymsCreated counts newly persisted mappings by value type.
	PseudonymsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinymask",
			Name:      "pseudonyms_created_total",
			Help:      "Total number of new pseudonym mappings persisted",
		},
		[]string{"value_type"},
	)

	// Lookups counts engine operations by outcome.
	Lookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinymask",
			Name:      "lookups_total",
			Help:      "Total number of anonymize/deanonymize calls by result",
		},
		[]string{"operation", "result"}, // result: "hit", "miss", "created", "error"
	)

	// Collisions counts derived pseudonyms that were already taken.
	Collisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinymask",
			Name:      "collisions_total",
			Help:      "Total number of pseudonym collisions resolved by disambiguation",
		},
		[]string{"value_type"},
	)

	// TypeFallbacks counts deanonymize hits found under a type other than the hint.
	TypeFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinymask",
			Name:      "type_fallbacks_total",
			Help:      "Total number of deanonymize matches found under a fallback value type",
		},
		[]string{"hint", "matched"},
	)

	// StoreOperationDuration tracks mapping store round-trips.
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tinymask",
			Name:      "store_operation_duration_seconds",
			Help:      "Mapping store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// TextTokens counts pseudonym-shaped tokens seen during free-text scans.
	TextTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinymask",
			Name:      "text_tokens_total",
			Help:      "Total number of pseudonym-shaped tokens found in free text",
		},
		[]string{"result"}, // "resolved" or "unresolved"
	)

	// MappingsTotal tracks the number of stored mappings by value type.
	MappingsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tinymask",
			Name:      "mappings_total",
			Help:      "Number of stored pseudonym mappings",
		},
		[]string{"value_type"},
	)

	// HTTPRequestsTotal counts requests served by the exporter endpoint.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinymask",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests served by the exporter",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks exporter request duration.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tinymask",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
