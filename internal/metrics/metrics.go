package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Validation pipeline metrics
	// ============================================
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sponsor_validations_total",
			Help: "Total number of validation requests by verdict",
		},
		[]string{"verdict"},
	)

	ValidationRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sponsor_validation_rejections_total",
			Help: "Total number of validation rejections by reason",
		},
		[]string{"reason"},
	)

	ValidationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sponsor_validation_duration_seconds",
		Help:    "Validation pipeline duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	ProofVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sponsor_proof_verifications_total",
			Help: "Total number of Groth16 proof verifications by result",
		},
		[]string{"result"},
	)

	// ============================================
	// Settlement metrics
	// ============================================
	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sponsor_settlements_total",
			Help: "Total number of settlements by operation outcome",
		},
		[]string{"outcome"},
	)

	RefundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sponsor_refunds_total",
			Help: "Total number of refund transfers by delivery result",
		},
		[]string{"result"},
	)

	ScratchSlotsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sponsor_scratch_slots_in_flight",
		Help: "Validated operations awaiting settlement",
	})

	// ============================================
	// Pool state metrics
	// ============================================
	RootHistorySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sponsor_root_history_size",
		Help: "Number of state roots retained in the ring",
	})

	RootUpdatesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sponsor_root_updates_received_total",
		Help: "Total number of pool root update events consumed",
	})

	// ============================================
	// Registry and balance metrics
	// ============================================
	RegisteredFactories = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sponsor_registered_factories",
		Help: "Number of whitelisted account factories",
	})

	PooledBalanceWei = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sponsor_pooled_balance_wei",
		Help: "Pooled fee balance in wei (float approximation)",
	})

	// ============================================
	// NATS connection metrics
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sponsor_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSMessagesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sponsor_nats_messages_failed_total",
			Help: "Total number of NATS messages failed to process",
		},
		[]string{"subject"},
	)

	// ============================================
	// HTTP metrics
	// ============================================
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sponsor_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
