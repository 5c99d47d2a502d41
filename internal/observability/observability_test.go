package observability

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("debug", "console")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = NewLogger("", "json")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))

	_, err = NewLogger("loud", "json")
	assert.Error(t, err)
}

func TestSetModelMode(t *testing.T) {
	SetModelMode("neural", "neural", "rule-based")
	assert.Equal(t, 1.0, testutil.ToFloat64(DefaultMetrics.ModelMode.WithLabelValues("neural")))
	assert.Equal(t, 0.0, testutil.ToFloat64(DefaultMetrics.ModelMode.WithLabelValues("rule-based")))

	SetModelMode("rule-based", "neural", "rule-based")
	assert.Equal(t, 0.0, testutil.ToFloat64(DefaultMetrics.ModelMode.WithLabelValues("neural")))
	assert.Equal(t, 1.0, testutil.ToFloat64(DefaultMetrics.ModelMode.WithLabelValues("rule-based")))
}

func TestRecordInference(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.InferencesTotal.WithLabelValues("neural"))
	RecordInference("neural", 0.0002, 1704067200)
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.InferencesTotal.WithLabelValues("neural")))
	assert.Equal(t, 1704067200.0, testutil.ToFloat64(DefaultMetrics.LastClassification))
}

func TestRecordDBQuery_CountsErrors(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "insert_verdict"))
	RecordDBQuery("postgres", "insert_verdict", 0.01, nil)
	RecordDBQuery("postgres", "insert_verdict", 0.01, assert.AnError)
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "insert_verdict")))
}

func TestWSConnected(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.WSConnections)
	WSConnected(1)
	WSConnected(1)
	WSConnected(-1)
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.WSConnections))
}

func TestMetricNamespace(t *testing.T) {
	desc := DefaultMetrics.CollapseDetections.Desc().String()
	assert.True(t, strings.Contains(desc, "token_risk_lab_model_quantization_collapse_detections_total"), desc)
}
