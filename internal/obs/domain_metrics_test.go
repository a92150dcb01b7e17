package obs_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fidelia-cart/internal/obs"
)

func TestDomainMetricsRegistered(t *testing.T) {
	registry := prometheus.NewRegistry()
	obs.MustRegisterDomainMetrics("fidelia", registry)
	require.NotNil(t, obs.PromoApplyTotal)
	require.NotNil(t, obs.CartMutationsTotal)
	require.NotNil(t, obs.CheckoutTotal)
	require.NotNil(t, obs.NegativeTotalTotal)

	before := testutil.ToFloat64(obs.PromoApplyTotal.WithLabelValues("rejected"))
	obs.PromoApplyTotal.WithLabelValues("rejected").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(obs.PromoApplyTotal.WithLabelValues("rejected")))

	// A second call is a no-op and must not panic.
	obs.MustRegisterDomainMetrics("fidelia", registry)
}
