package gender

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var storeHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gender_store_hits_total",
	Help: "Number of batch lookups answered from the durable store",
})

var storeMisses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gender_store_misses_total",
	Help: "Number of batch lookups routed to the classifier",
})

var classifierCacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gender_classifier_cache_hits_total",
	Help: "Number of classifier calls answered from the in-process LRU",
})

var classifierCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gender_classifier_cache_misses_total",
	Help: "Number of classifier calls forwarded to the inner model",
})
