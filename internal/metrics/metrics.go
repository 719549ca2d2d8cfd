package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTP
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests in flight",
		},
	)

	// Pterodactyl application API
	PanelAPIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panel_api_requests_total",
			Help: "Total number of Pterodactyl API requests",
		},
		[]string{"endpoint", "status"},
	)
	PanelAPIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "panel_api_request_duration_seconds",
			Help: "Duration of Pterodactyl API requests in seconds",
		},
		[]string{"endpoint"},
	)

	// Link shortener
	ShortenerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortener_requests_total",
			Help: "Total number of link shortener requests",
		},
		[]string{"status"},
	)

	// Renewal sweep
	SweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renewal_sweep_runs_total",
			Help: "Total number of renewal sweeps by result",
		},
		[]string{"result"},
	)
	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "renewal_sweep_duration_seconds",
			Help: "Duration of a renewal sweep in seconds",
		},
	)
	ServersSuspendedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "renewal_servers_suspended_total",
			Help: "Servers suspended for a lapsed renewal",
		},
	)
	RenewalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renewals_total",
			Help: "User renewal attempts by result",
		},
		[]string{"result"},
	)

	// Linkpays rewards
	LinkpaysGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkpays_generated_total",
			Help: "Link generation attempts by result",
		},
		[]string{"result"},
	)
	LinkpaysRedeemedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkpays_redeemed_total",
			Help: "Code redemption attempts by result",
		},
		[]string{"result"},
	)
	CoinsAwardedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "linkpays_coins_awarded_total",
			Help: "Coins credited through link redemptions",
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestsInFlight)

	prometheus.MustRegister(PanelAPIRequestsTotal)
	prometheus.MustRegister(PanelAPIRequestDuration)
	prometheus.MustRegister(ShortenerRequestsTotal)

	prometheus.MustRegister(SweepRunsTotal)
	prometheus.MustRegister(SweepDuration)
	prometheus.MustRegister(ServersSuspendedTotal)
	prometheus.MustRegister(RenewalsTotal)

	prometheus.MustRegister(LinkpaysGeneratedTotal)
	prometheus.MustRegister(LinkpaysRedeemedTotal)
	prometheus.MustRegister(CoinsAwardedTotal)

	// Go runtime and process collectors are already on the default registry.
}
