// Package runner 运行指标
package runner

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 宿主调度器导出的Prometheus指标
type Metrics struct {
	ticks       prometheus.Counter
	pausedTicks prometheus.Counter
	dropped     prometheus.Counter
	events      prometheus.Gauge
	completed   prometheus.Gauge
	paused      prometheus.Gauge
	latency     prometheus.Histogram
}

// newMetrics 创建指标，reg为nil时只创建不注册
func newMetrics(reg prometheus.Registerer, session string) *Metrics {
	labels := prometheus.Labels{"session": session}
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gosta_ticks_total",
			Help:        "Total number of ticks delivered to the engine",
			ConstLabels: labels,
		}),
		pausedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gosta_paused_ticks_total",
			Help:        "Total number of ticks discarded while paused",
			ConstLabels: labels,
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gosta_dropped_ticks_total",
			Help:        "Total number of ticks dropped by the source because the stream was full",
			ConstLabels: labels,
		}),
		events: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "gosta_events",
			Help:        "Number of accepted events since the last configure or clear",
			ConstLabels: labels,
		}),
		completed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "gosta_completed_windows",
			Help:        "Number of windows folded into the average since the last configure or clear",
			ConstLabels: labels,
		}),
		paused: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "gosta_paused",
			Help:        "1 while tick delivery is paused",
			ConstLabels: labels,
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "gosta_tick_latency_seconds",
			Help:        "Delay between tick timestamp and engine processing",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ticks,
			m.pausedTicks,
			m.dropped,
			m.events,
			m.completed,
			m.paused,
			m.latency,
		)
	}
	return m
}

// setPaused 更新暂停状态
func (m *Metrics) setPaused(paused bool) {
	if paused {
		m.paused.Set(1)
	} else {
		m.paused.Set(0)
	}
}
