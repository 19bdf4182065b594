package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var unfollowsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "engine_unfollows_processed_total",
	Help: "The total number of unfollow attempts by outcome",
}, []string{"status"})

var syncsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "engine_syncs_completed_total",
	Help: "The total number of relationship syncs completed",
}, []string{"result"})

var classificationsCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "engine_classifications_completed_total",
	Help: "The total number of classification batches completed",
})

var nonFollowersGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "engine_non_followers",
	Help: "Size of the current non-follower working set",
})
