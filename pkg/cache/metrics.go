package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreOperations counts store commands by operation and outcome.
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacher_store_operations_total",
			Help: "Total number of store operations",
		},
		[]string{"operation", "result"}, // get|set|expire|acquire|ping, hit|miss|ok|error
	)
)
