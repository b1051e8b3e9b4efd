// Package cache holds the short-lived per-address memoization of aggregated
// status views. It exists to shield the ledger RPC from high-frequency
// status polling; entries are invalidated explicitly after any mutation.
package cache

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/z00rs/learn2earn-herman-test/internal/models"
)

// StatusCache is keyed by canonical address. Implementations must be safe
// for concurrent keyed access; no cross-key coordination is required.
type StatusCache interface {
	Get(ctx context.Context, address string) (*models.StatusView, bool)
	Set(ctx context.Context, address string, view *models.StatusView)
	Delete(ctx context.Context, address string)
}

var lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "learn2earn_status_cache_lookups_total",
	Help: "Status cache lookups by backend and result",
}, []string{"backend", "result"})
