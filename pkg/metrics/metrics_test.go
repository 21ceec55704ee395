package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterCollectors(reg)

	AuthAttempts.WithLabelValues("local", "success").Inc()
	require.Equal(t, 1, testutil.CollectAndCount(AuthAttempts))

	// registering twice on the same registry panics
	require.Panics(t, func() { RegisterCollectors(reg) })
}
