package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recommendationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upnext_recommendations_created_total",
			Help: "Total number of recommendations inserted",
		},
	)

	votesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upnext_votes_total",
			Help: "Total number of applied votes",
		},
		[]string{"direction"},
	)

	recommendationsRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upnext_recommendations_removed_total",
			Help: "Total number of removed recommendations",
		},
		[]string{"reason"}, // "score", "admin"
	)

	randomPicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upnext_random_picks_total",
			Help: "Random recommendations served, by score bucket",
		},
		[]string{"bucket"}, // "high", "low", "any"
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upnext_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upnext_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "path"},
	)
)
