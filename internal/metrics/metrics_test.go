package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metapool/pkg/errors"
)

func TestMetrics(t *testing.T) {
	m := New()

	m.ObserveAdd(OutcomeAdded)
	m.ObserveAdd(OutcomeAdded)
	m.ObserveAdd(OutcomeCollided)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ComponentsAdded.WithLabelValues(OutcomeAdded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ComponentsAdded.WithLabelValues(OutcomeCollided)))

	m.ObserveFile("xml", nil)
	m.ObserveFile("xml", errors.New("boom"))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FilesParsed.WithLabelValues("xml")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ParseErrors.WithLabelValues("xml")))

	m.ObserveCache(true, nil)
	m.ObserveCache(false, errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheWrites.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheReads.WithLabelValues("error")))

	m.ObserveDuration("load", time.Now())
	m.PoolSize.Set(3)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.PoolSize.Set(5)
	assert.Equal(t, 5.0, testutil.ToFloat64(a.PoolSize))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PoolSize))
}
