package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetConnectionStatusIsExclusive(t *testing.T) {
	SetConnectionStatus("driver", "connecting")
	SetConnectionStatus("driver", "connected")

	assert.Equal(t, 1.0, testutil.ToFloat64(connectionStatus.WithLabelValues("driver", "connected")))
	assert.Equal(t, 0.0, testutil.ToFloat64(connectionStatus.WithLabelValues("driver", "connecting")))
	assert.Equal(t, 0.0, testutil.ToFloat64(connectionStatus.WithLabelValues("driver", "authError")))
}

func TestRecordGatewayRequestLabels(t *testing.T) {
	before := testutil.ToFloat64(gatewayRequests.WithLabelValues("staff", "error"))
	RecordGatewayRequest("staff", 0)
	assert.Equal(t, before+1, testutil.ToFloat64(gatewayRequests.WithLabelValues("staff", "error")))

	before = testutil.ToFloat64(gatewayRequests.WithLabelValues("none", "200"))
	RecordGatewayRequest("none", 200)
	assert.Equal(t, before+1, testutil.ToFloat64(gatewayRequests.WithLabelValues("none", "200")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordTokenRefresh("staff", "ok")
	RecordEvent("kds:new-order")
	RecordReconnectAttempt("staff")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "menuqr_sync_auth_token_refresh_total")
	assert.Contains(t, string(body), `event="kds:new-order"`)
	assert.Contains(t, string(body), "menuqr_sync_realtime_reconnect_attempts_total")
}
