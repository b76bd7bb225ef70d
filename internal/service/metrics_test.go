package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"FieldForce/internal/model"
	pkgerrors "FieldForce/pkg/errors"
	"FieldForce/pkg/metrics"
)

func TestTransitionMetricsBoundTypeLabel(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := metrics.NewAttendanceMetrics(provider.Meter("test"))
	require.NoError(t, err)
	f := newFixture(t, func(o *AttendanceOptions) { o.Metrics = m })

	for _, typ := range []string{"teleport", "check-in-now", "'; DROP TABLE"} {
		_, err := f.transition(t, typ, morning)
		require.ErrorIs(t, err, pkgerrors.InvalidAttendanceType)
	}
	_, err = f.transition(t, string(model.AttendanceCheckIn), morning)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if metric.Name != "attendance_transitions_total" {
				continue
			}
			sum, ok := metric.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				v, ok := dp.Attributes.Value(attribute.Key("type"))
				require.True(t, ok)
				counts[v.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"invalid": 3, "check-in": 1}, counts)
}
