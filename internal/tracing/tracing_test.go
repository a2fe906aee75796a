package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestEnabled(t *testing.T) {
	for v, want := range map[string]bool{"": false, "0": false, "no": false, "1": true, "TRUE": true, " on ": true} {
		t.Setenv("OTEL_ENABLED", v)
		assert.Equal(t, want, Enabled(), "OTEL_ENABLED=%q", v)
	}
}

func TestSampleRatio(t *testing.T) {
	cases := map[string]float64{"": 1, "junk": 1, "0.25": 0.25, "-3": 0, "7": 1}
	for raw, want := range cases {
		t.Setenv("OTEL_SAMPLER_RATIO", raw)
		assert.Equal(t, want, sampleRatio(), "OTEL_SAMPLER_RATIO=%q", raw)
	}
}

func TestHeaders(t *testing.T) {
	assert.Nil(t, headers(""))
	assert.Nil(t, headers("novalue, =x"))
	assert.Equal(t, map[string]string{"a": "1", "b": "2=3"}, headers(" a=1 ,b=2=3,c="))
}

func TestStartEnd_RecordsSpansAndErrors(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, ok := Start(context.Background(), "warehouse.write", attribute.String("table", "songs"))
	End(ok, nil)
	_, bad := Start(context.Background(), "warehouse.write", attribute.String("table", "time"))
	End(bad, errors.New("disk full"))

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "warehouse.write", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "disk full", spans[1].Status().Description)
}
