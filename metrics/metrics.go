package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PlaceResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "place_resolutions_total",
			Help: "Total number of maps URLs resolved to a place, by strategy",
		},
		[]string{"strategy"},
	)

	PlaceResolutionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "place_resolution_errors_total",
			Help: "Total number of failed resolutions, by error kind",
		},
		[]string{"kind"},
	)

	PlaceResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "place_resolution_duration_seconds",
			Help:    "Duration of a full resolution in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	PlaceSearchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "place_search_requests_total",
			Help: "Total number of Places API requests, by kind and search radius",
		},
		[]string{"kind", "radius"},
	)

	ShopImports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_imports_total",
			Help: "Total number of shop imports, by outcome",
		},
		[]string{"outcome"},
	)
)
