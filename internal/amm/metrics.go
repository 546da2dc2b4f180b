package amm

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"liquidityPool/internal/model"
)

// Metrics holds the Prometheus collectors of the engine.
type Metrics struct {
	Requests      *prometheus.CounterVec
	Latency       *prometheus.HistogramVec
	SwapVolume    *prometheus.CounterVec
	FeesCollected *prometheus.CounterVec
	PoolReserves  *prometheus.GaugeVec
	LPTokenSupply *prometheus.GaugeVec
	PoolsTotal    prometheus.Gauge
}

// NewMetrics registers the engine collectors on reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "requests_total",
				Help:      "Pool requests by operation and outcome",
			},
			[]string{"op", "status"},
		),
		Latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "request_latency_seconds",
				Help:      "Pool request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		SwapVolume: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "swap_volume_total",
				Help:      "Swap input volume in base units",
			},
			[]string{"pool", "asset"},
		),
		FeesCollected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "swap_fees_collected_total",
				Help:      "Swap fees retained by pools in base units",
			},
			[]string{"pool", "asset"},
		),
		PoolReserves: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "reserves",
				Help:      "Current pool reserves",
			},
			[]string{"pool", "asset"},
		),
		LPTokenSupply: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "lp_supply",
				Help:      "Outstanding LP shares",
			},
			[]string{"pool"},
		),
		PoolsTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "pools_total",
				Help:      "Number of initialized pools",
			},
		),
	}
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "rejected"
	}
	m.Requests.WithLabelValues(op, status).Inc()
	m.Latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) recordPool(p model.PoolState) {
	if m == nil {
		return
	}
	pool := p.Address.Hex()
	m.PoolReserves.WithLabelValues(pool, p.AssetX.Hex()).Set(float64(p.ReserveX))
	m.PoolReserves.WithLabelValues(pool, p.AssetY.Hex()).Set(float64(p.ReserveY))
	m.LPTokenSupply.WithLabelValues(pool).Set(float64(p.LPSupply))
}

func (m *Metrics) recordSwap(p model.PoolState, assetIn common.Address, q SwapQuote) {
	if m == nil {
		return
	}
	pool := p.Address.Hex()
	m.SwapVolume.WithLabelValues(pool, assetIn.Hex()).Add(float64(q.AmountIn))
	m.FeesCollected.WithLabelValues(pool, assetIn.Hex()).Add(float64(q.Fee))
}
