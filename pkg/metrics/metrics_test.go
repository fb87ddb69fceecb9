package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryForDefaults(t *testing.T) {
	assert.Same(t, DefaultRegistry, RegistryFor(Config{Enabled: true}))
	assert.Same(t, DefaultRegistry, RegistryFor(Config{Enabled: true, Namespace: DefaultNamespace}))
}

func TestRegistryForCustomRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := RegistryFor(Config{Enabled: true, Registry: reg})
	require.NotSame(t, DefaultRegistry, r)

	r.TasksExecuted.WithLabelValues("p").Inc()
	r.TasksExecuted.WithLabelValues("p").Inc()
	assert.Equal(t, 2.0, testutil.ToFloat64(r.TasksExecuted.WithLabelValues("p")))

	count, err := testutil.GatherAndCount(reg, "goasync_threadpool_tasks_executed_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestConstLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := RegistryFor(Config{Registry: reg, Labels: prometheus.Labels{"env": "test"}})
	r.PoolSize.WithLabelValues("p").Set(3)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)

	labels := map[string]string{}
	for _, lp := range families[0].GetMetric()[0].GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	assert.Equal(t, map[string]string{"env": "test", "pool_name": "p"}, labels)
}

func TestRegistryForIsShared(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := RegistryFor(Config{Enabled: true, Registry: reg})
	b := RegistryFor(Config{Enabled: true, Registry: reg, Namespace: DefaultNamespace})
	assert.Same(t, a, b)

	labelled := RegistryFor(Config{Registry: reg, Namespace: "other", Labels: prometheus.Labels{"b": "2", "a": "1"}})
	assert.NotSame(t, a, labelled)
	assert.Same(t, labelled, RegistryFor(Config{Registry: reg, Namespace: "other", Labels: prometheus.Labels{"a": "1", "b": "2"}}))
}
