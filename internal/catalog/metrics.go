package catalog

import "github.com/prometheus/client_golang/prometheus"

const (
	labelOp     = "op"
	labelResult = "result"
)

type StoreMetrics struct {
	Products  prometheus.Gauge
	Reviews   prometheus.Counter
	Snapshots *prometheus.CounterVec
}

func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		Products: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_products",
			Help: "Products currently held in the catalog",
		}),
		Reviews: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_reviews_total",
			Help: "Reviews accepted",
		}),
		Snapshots: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_snapshot_operations_total",
				Help: "Snapshot dump/restore operations",
			},
			[]string{labelOp, labelResult},
		),
	}

	reg.MustRegister(m.Products, m.Reviews, m.Snapshots)
	return m
}

func (m *StoreMetrics) setProducts(n int) {
	if m == nil {
		return
	}
	m.Products.Set(float64(n))
}

func (m *StoreMetrics) reviewed() {
	if m == nil {
		return
	}
	m.Reviews.Inc()
}

func (m *StoreMetrics) snapshot(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Snapshots.WithLabelValues(op, result).Inc()
}
