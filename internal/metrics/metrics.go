package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "energy_billing_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	cycleTotal   *prometheus.CounterVec
	cycleLatency *prometheus.HistogramVec

	invalidReadings *prometheus.CounterVec
	acceptedTotal   *prometheus.GaugeVec
	consumption     *prometheus.GaugeVec
	rollovers       *prometheus.CounterVec

	recalibrations *prometheus.CounterVec

	ledgerWrites *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers the collectors with reg, or the default registerer when reg
// is nil. Only the first call has any effect.
func Init(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		cycleTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "update_cycles_total",
				Help: "Total update cycles by result",
			},
			[]string{"result"},
		)
		cycleLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "update_cycle_latency_seconds",
				Help:    "Update cycle latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		invalidReadings = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "invalid_readings_total",
				Help: "Meter readings that were unavailable or unparseable",
			},
			[]string{"channel"},
		)
		acceptedTotal = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "accepted_total_kwh",
				Help: "Accepted meter total per channel",
			},
			[]string{"channel"},
		)
		consumption = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "consumption_kwh",
				Help: "Consumption per channel and period",
			},
			[]string{"channel", "period"},
		)
		rollovers = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "baseline_rollovers_total",
				Help: "Baseline rollovers per channel and period",
			},
			[]string{"channel", "period"},
		)
		recalibrations = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "recalibrations_total",
				Help: "One-shot baseline recalibrations per channel and period",
			},
			[]string{"channel", "period"},
		)
		ledgerWrites = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_writes_total",
				Help: "Ledger writes by result (success, skipped, error)",
			},
			[]string{"result"},
		)
		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_export_total",
				Help: "Ledger exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ledger_export_latency_seconds",
				Help:    "Ledger export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		reg.MustRegister(
			cycleTotal,
			cycleLatency,
			invalidReadings,
			acceptedTotal,
			consumption,
			rollovers,
			recalibrations,
			ledgerWrites,
			exportTotal,
			exportLatency,
		)
	})
}

func ObserveCycle(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if cycleTotal != nil {
		cycleTotal.WithLabelValues(result).Inc()
	}
	if cycleLatency != nil {
		cycleLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

func IncInvalidReading(channel string) {
	if invalidReadings != nil {
		invalidReadings.WithLabelValues(channel).Inc()
	}
}

func SetAccepted(channel string, kwh float64) {
	if acceptedTotal != nil {
		acceptedTotal.WithLabelValues(channel).Set(kwh)
	}
}

func SetConsumption(channel, period string, kwh float64) {
	if consumption != nil {
		consumption.WithLabelValues(channel, period).Set(kwh)
	}
}

func IncRollover(channel, period string) {
	if rollovers != nil {
		rollovers.WithLabelValues(channel, period).Inc()
	}
}

func IncRecalibration(channel, period string) {
	if recalibrations != nil {
		recalibrations.WithLabelValues(channel, period).Inc()
	}
}

func IncLedgerWrite(result string) {
	if ledgerWrites != nil {
		ledgerWrites.WithLabelValues(result).Inc()
	}
}

func ObserveExport(format, result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}
