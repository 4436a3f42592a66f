package observe

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ObserveEvent("/add", 10*time.Millisecond)
	m.ObserveEvent("/add", time.Millisecond)
	m.ObserveTranslation("automatic", 2)
	m.ObserveTranslation("dictionary", 0)
	m.ObserveFailure("panic")
	m.ObserveDelivery(nil)
	m.ObserveDelivery(errors.New("timeout"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("/add")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.translations.WithLabelValues("automatic")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.unknownRecorded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("panic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("error")))
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewMetrics(registry)
	require.NoError(t, err)

	_, err = NewMetrics(registry)
	assert.Error(t, err)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveEvent("/list", time.Second)
		m.ObserveTranslation("mixed", 1)
		m.ObserveFailure("error")
		m.ObserveDelivery(nil)
	})
}
