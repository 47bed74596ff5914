package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveBeforeInitIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		if cycleTotal == nil {
			ObserveCycle(ResultSuccess, time.Millisecond)
			IncRollover("buy", "day")
		}
	})
}

func TestInitRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	Init(reg)
	Init(reg)

	ObserveCycle("", 10*time.Millisecond)
	IncInvalidReading("sell")
	SetAccepted("buy", 105)
	SetConsumption("buy", "day", 5)
	IncRollover("buy", "day")
	IncRecalibration("buy", "month")
	IncLedgerWrite("skipped")
	ObserveExport("xlsx", "", time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["energy_billing_update_cycles_total"])
	assert.True(t, names["energy_billing_accepted_total_kwh"])
	assert.True(t, names["energy_billing_ledger_export_total"])
}
