package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCollector_RecordsAndExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordMutationSuccess("create")
	c.RecordMutationSuccess("create")
	c.RecordMutationFailure("like", "network")
	c.RecordHTTPStatus(201)
	c.RecordRequestLatency(120 * time.Millisecond)
	c.RecordNotificationSet("error")

	server := httptest.NewServer(Handler(reg))
	defer server.Close()

	resp, err := server.Client().Get(server.URL)
	if err != nil {
		t.Fatalf("メトリクスの取得に失敗した: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("レスポンスの読み取りに失敗した: %v", err)
	}
	output := string(body)

	wantLines := []string{
		`bloglist_mutation_success_total{operation="create"} 2`,
		`bloglist_mutation_fail_total{category="network",operation="like"} 1`,
		`bloglist_http_status_total{status_code="201"} 1`,
		`bloglist_notification_set_total{kind="error"} 1`,
	}
	for _, want := range wantLines {
		if !strings.Contains(output, want) {
			t.Errorf("メトリクス出力に %q が含まれない", want)
		}
	}

	if !strings.Contains(output, "bloglist_request_latency_seconds_count 1") {
		t.Error("レイテンシヒストグラムが記録されていない")
	}
}

func TestNoop_DoesNotPanic(t *testing.T) {
	var c MetricsCollector = Noop{}

	c.RecordMutationSuccess("create")
	c.RecordMutationFailure("like", "network")
	c.RecordHTTPStatus(500)
	c.RecordRequestLatency(time.Second)
	c.RecordNotificationSet("info")
}
