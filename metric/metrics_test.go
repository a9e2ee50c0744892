package metric

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/medkit/errors"
)

func TestObserveStep(t *testing.T) {
	r := NewRegistry(false)
	m := r.Metrics

	m.ObserveStep("cleanup", "regexp_replacer", 20*time.Millisecond, nil)
	m.ObserveStep("cleanup", "regexp_replacer", 10*time.Millisecond, nil)
	m.ObserveStep("cleanup", "sentence_tokenizer", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StepRuns.WithLabelValues("cleanup", "regexp_replacer", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StepRuns.WithLabelValues("cleanup", "sentence_tokenizer", StatusError)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.StepDuration))
}

func TestCounters(t *testing.T) {
	m := NewRegistry(false).Metrics

	m.AddAnnotations("regexp_matcher", 3)
	m.AddAnnotations("regexp_matcher", 0)
	m.ObserveProvRecord(ProvAdded)
	m.ObserveProvRecord(ProvAdded)
	m.ObserveProvRecord(ProvIgnored)
	m.ObserveDocument("cleanup", nil)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.AnnotationsProduced.WithLabelValues("regexp_matcher")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProvRecords.WithLabelValues(ProvAdded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProvRecords.WithLabelValues(ProvIgnored)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsProcessed.WithLabelValues("cleanup", StatusOK)))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStep("p", "op", time.Second, nil)
		m.AddAnnotations("op", 1)
		m.ObserveProvRecord(ProvAdded)
		m.ObserveDocument("p", nil)
	})
}

func TestWriteText(t *testing.T) {
	r := NewRegistry(false)
	r.Metrics.ObserveProvRecord(ProvDuplicate)

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	assert.Contains(t, buf.String(), `medkit_prov_records_total{result="duplicate"} 1`)
}
