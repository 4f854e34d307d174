// Package metrics holds the Prometheus collectors for the chat route and
// the chat client. All collectors register with the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voxchat"

var (
	// ChatRequests counts chat route requests.
	// Labels: outcome (streamed, buffered, invalid, upstream_error, interrupted)
	ChatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "route",
		Name:      "chat_requests_total",
		Help:      "Total chat route requests by outcome",
	}, []string{"outcome"})

	// StreamChunks counts text deltas written to streaming responses
	StreamChunks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "route",
		Name:      "stream_chunks_total",
		Help:      "Total text chunks flushed to streaming chat responses",
	})

	// RateLimited counts requests rejected by the rate limiter.
	// Labels: key
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "route",
		Name:      "rate_limited_total",
		Help:      "Total requests rejected by the rate limiter",
	}, []string{"key"})

	// ClientReplies counts replies merged into a conversation.
	// Labels: kind (buffered, streaming)
	ClientReplies = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "replies_total",
		Help:      "Total chat replies merged into the conversation",
	}, []string{"kind"})

	// ClientFailures counts chat requests that did not produce a full reply.
	// Labels: reason (api, network, canceled)
	ClientFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "failures_total",
		Help:      "Total chat requests that failed or were superseded",
	}, []string{"reason"})
)

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
