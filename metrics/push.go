package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends everything in the gatherer to a Prometheus Pushgateway. Short lived CLI runs cannot be scraped.
func Push(ctx context.Context, url string, gatherer prometheus.Gatherer) error {
	return push.New(url, namespace).
		Gatherer(gatherer).
		PushContext(ctx)
}
