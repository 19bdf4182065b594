package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var pagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "graph_pages_fetched_total",
	Help: "The total number of edge pages fetched",
}, []string{"edge"})

var entitiesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "graph_entities_fetched_total",
	Help: "The total number of entities returned across edge pages",
}, []string{"edge"})

var entitiesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "graph_entities_dropped_total",
	Help: "The total number of entities dropped for missing a stable ID",
}, []string{"edge"})

var fetchesTruncated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "graph_fetches_truncated_total",
	Help: "The total number of edge traversals truncated by a page failure",
}, []string{"edge"})
