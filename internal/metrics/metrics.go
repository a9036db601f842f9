package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GeometryFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "territory_geometry_fetch_total",
		Help: "Partition document loads by outcome",
	}, []string{"partition", "result"})
	GeometryLoadDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "territory_geometry_load_duration_ms",
		Help:    "Fetch plus parse time of a partition in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})
	GeometryCoalescedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "territory_geometry_coalesced_total",
		Help: "EnsureLoaded calls that shared an in-flight load",
	})
	GeometryRegionsResident = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "territory_geometry_regions_resident",
		Help: "Regions currently held in the geometry cache",
	})
	GeometryRedisHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "territory_geometry_redis_hits_total",
		Help: "Partition documents served from redis",
	})
	GeometryRedisMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "territory_geometry_redis_misses_total",
		Help: "Partition documents not found in redis",
	})
	AssignmentOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "territory_assignment_ops_total",
		Help: "Assignment store operations by kind and whether they changed state",
	}, []string{"op", "effect"})
	AssignedRegions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "territory_assigned_regions",
		Help: "Regions with an owning location",
	})
	PaintSamplesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "territory_paint_samples_total",
		Help: "Pointer samples processed by paint sessions",
	}, []string{"result"})
	RadiusRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "territory_radius_requests_total",
		Help: "Radius membership computations by outcome",
	}, []string{"result"})
	GeocodeRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "territory_geocode_requests_total",
		Help: "Geocoding calls by outcome",
	}, []string{"result"})
	GeocodeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "territory_geocode_duration_ms",
		Help:    "Geocoding call duration in milliseconds",
		Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000},
	})
	FeedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "territory_feed_clients",
		Help: "Connected change-feed websocket clients",
	})
)

func init() {
	prometheus.MustRegister(GeometryFetchTotal)
	prometheus.MustRegister(GeometryLoadDurationMs)
	prometheus.MustRegister(GeometryCoalescedTotal)
	prometheus.MustRegister(GeometryRegionsResident)
	prometheus.MustRegister(GeometryRedisHitsTotal)
	prometheus.MustRegister(GeometryRedisMissesTotal)
	prometheus.MustRegister(AssignmentOpsTotal)
	prometheus.MustRegister(AssignedRegions)
	prometheus.MustRegister(PaintSamplesTotal)
	prometheus.MustRegister(RadiusRequestsTotal)
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeDurationMs)
	prometheus.MustRegister(FeedClients)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
