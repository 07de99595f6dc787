package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExecutionAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seckill_execution_attempts_total",
		Help: "Purchase attempts by terminal state",
	}, []string{"state"})

	ExposerRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seckill_exposer_requests_total",
		Help: "Total exposer requests",
	})

	StockRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "seckill_stock_remaining",
		Help: "Remaining stock per sale as last observed",
	}, []string{"sale_id"})
)
