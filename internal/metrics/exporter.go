package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "opratectl"

// Exporter publishes the latest decision as Prometheus gauges and counts
// evaluations and rate switches per triggering signal.
type Exporter struct {
	registry *prometheus.Registry

	target     prometheus.Gauge
	desired    prometheus.Gauge
	refresh    prometheus.Gauge
	peak       prometheus.Gauge
	brightness prometheus.Gauge
	lowBattery prometheus.Gauge
	armed      prometheus.Gauge
	powerMode  *prometheus.GaugeVec

	evaluations *prometheus.CounterVec
	switches    *prometheus.CounterVec
}

func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		target: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_operation_rate_hz",
			Help:      "Published panel operation rate",
		}),
		desired: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "desired_operation_rate_hz",
			Help:      "Operation rate implied by the last evaluation",
		}),
		refresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_rate_hz",
			Help:      "Active content refresh rate",
		}),
		peak: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peak_refresh_rate_hz",
			Help:      "Peak refresh rate hint, 0 when unknown",
		}),
		brightness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "brightness_dbv",
			Help:      "Last recorded display brightness",
		}),
		lowBattery: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "low_battery",
			Help:      "1 while low battery mode is enabled",
		}),
		armed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "histogram_armed",
			Help:      "1 while the luma histogram sampler is armed",
		}),
		powerMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "power_mode",
			Help:      "1 for the current panel power mode",
		}, []string{"mode"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Rate evaluations by triggering signal",
		}, []string{"reason"}),
		switches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_switches_total",
			Help:      "Published target rate changes by triggering signal",
		}, []string{"reason"}),
	}

	e.registry.MustRegister(
		e.target, e.desired, e.refresh, e.peak, e.brightness,
		e.lowBattery, e.armed, e.powerMode,
		e.evaluations, e.switches,
	)

	return e
}

func (e *Exporter) Record(_ context.Context, snapshot *DecisionSnapshot) error {
	if snapshot == nil {
		return nil
	}

	e.target.Set(float64(snapshot.Rates.Target))
	e.desired.Set(float64(snapshot.Rates.Desired))
	e.refresh.Set(float64(snapshot.Rates.Refresh))
	e.peak.Set(float64(snapshot.Rates.Peak))
	e.brightness.Set(float64(snapshot.Display.Brightness))
	e.lowBattery.Set(float64(boolToInt(snapshot.State.LowBattery)))
	e.armed.Set(float64(boolToInt(snapshot.State.SamplerArmed)))

	if snapshot.Display.PowerMode != "" {
		e.powerMode.Reset()
		e.powerMode.WithLabelValues(snapshot.Display.PowerMode).Set(1)
	}

	if snapshot.Reason != ReasonStatus {
		e.evaluations.WithLabelValues(snapshot.Reason).Inc()
		if snapshot.State.Switched {
			e.switches.WithLabelValues(snapshot.Reason).Inc()
		}
	}

	return nil
}

func (*Exporter) Close() error {
	return nil
}

// Handler serves the exporter registry in the Prometheus text format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
