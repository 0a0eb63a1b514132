package revenuemetrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/mywill/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

func TestRecordSignedWill(t *testing.T) {
	rec := New()
	rec.RecordSignedWill("42", "single", "GBP", 18000, 2000)
	rec.RecordSignedWill("42", "single", "GBP", 18000, 2000)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.signedWills.WithLabelValues("42", "single")))
	assert.Equal(t, 36000.0, testutil.ToFloat64(rec.brokerRevenue.WithLabelValues("42", "GBP")))
	assert.Equal(t, 4000.0, testutil.ToFloat64(rec.platformRevenue.WithLabelValues("42", "GBP")))

	var nilRec *Recorder
	nilRec.RecordSignedWill("1", "single", "GBP", 1, 1)
}

func TestNewPusher(t *testing.T) {
	log := zap.NewNop()
	assert.Nil(t, NewPusher(config.Config{}, log))
	assert.Nil(t, NewPusher(config.Config{RevenueMetrics: config.RevenueMetricsConfig{Exporter: ExporterPushgateway}}, log))
	assert.Nil(t, NewPusher(config.Config{RevenueMetrics: config.RevenueMetricsConfig{Exporter: "statsd", Endpoint: "http://x"}}, log))

	p := NewPusher(config.Config{AppName: "mywill", RevenueMetrics: config.RevenueMetricsConfig{
		Exporter: ExporterPushgateway, Endpoint: "http://pushgateway:9091",
	}}, log)
	assert.IsType(t, &PushgatewayPusher{}, p)
}

func TestRemoteWritePush(t *testing.T) {
	rec := New()
	rec.RecordSignedWill("7", "single", "GBP", 100, 0)

	var got prompb.WriteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "snappy", r.Header.Get("Content-Encoding"))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		raw, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, proto.Unmarshal(raw, protoadapt.MessageV2Of(&got)))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewRemoteWritePusher(srv.URL, "token").Push(context.Background(), rec.Gatherer()))

	names := map[string]bool{}
	for _, ts := range got.Timeseries {
		for _, l := range ts.Labels {
			if l.Name == "__name__" {
				names[l.Value] = true
			}
		}
	}
	assert.True(t, names["mywill_signed_wills_total"])
	assert.True(t, names["mywill_broker_revenue_minor_total"])
}
