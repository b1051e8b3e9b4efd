package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ledgerCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "learn2earn_ledger_calls_total",
	Help: "Contract interactions by method and result",
}, []string{"method", "result"})
