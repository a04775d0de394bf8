package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProductsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_created_total",
		Help: "Total number of products added to the catalog",
	})

	ProductsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_deleted_total",
		Help: "Total number of products removed with their movements",
	})

	MovementsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_recorded_total",
		Help: "Total number of stock movements appended to the ledger",
	}, []string{"reason"})

	MovementsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_rejected_total",
		Help: "Total number of rejected movement attempts",
	}, []string{"cause"})

	PriceUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "price_updates_total",
		Help: "Total number of unit price updates",
	})

	PriceUpdateRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "price_update_retries_total",
		Help: "Total number of price updates retried after a connection refresh",
	})

	CheckpointsForcedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkpoints_forced_total",
		Help: "Total number of forced log checkpoints",
	}, []string{"trigger"})

	CheckpointDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkpoint_duration_seconds",
		Help:    "Latency of forced log checkpoints",
		Buckets: prometheus.DefBuckets,
	})

	BackupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backups_total",
		Help: "Total number of shutdown backup attempts",
	}, []string{"result"})

	ConnectionRefreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "connection_refreshes_total",
		Help: "Total number of storage handle refreshes",
	})

	ScansClassifiedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scans_classified_total",
		Help: "Total number of keystroke bursts classified as scans",
	})

	ScanBurstsDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scan_bursts_discarded_total",
		Help: "Total number of finalized bursts below the minimum scan length",
	})
)
