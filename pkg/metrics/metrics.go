package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SnippetsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "pastebin", Name: "snippets_created_total", Help: "Number of snippets persisted."},
	)
	SnippetLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pastebin", Name: "snippet_lookups_total", Help: "Snippet lookups by id, by outcome (found, missing, expired)."},
		[]string{"result"},
	)
	RecentListings = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "pastebin", Name: "recent_listings_total", Help: "Number of recent public listings served."},
	)
	SnippetsPurged = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "pastebin", Name: "snippets_purged_total", Help: "Expired snippets physically removed by the retention sweeper."},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pastebin", Name: "http_requests_total", Help: "HTTP requests by method, route and status."},
		[]string{"method", "route", "status"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(SnippetsCreated)
	reg.MustRegister(SnippetLookups)
	reg.MustRegister(RecentListings)
	reg.MustRegister(SnippetsPurged)
	reg.MustRegister(HTTPRequests)
}
