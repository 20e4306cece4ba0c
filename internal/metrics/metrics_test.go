package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestCallsEndedLabels(t *testing.T) {
	before := testutil.ToFloat64(CallsEnded.WithLabelValues("failed", "invite_timeout"))
	CallsEnded.WithLabelValues("failed", "invite_timeout").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(CallsEnded.WithLabelValues("failed", "invite_timeout")))
}
