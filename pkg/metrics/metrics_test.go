package metrics

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkibDa/Code-Genesis/pkg/workflow"
)

func TestWorkflowRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewWorkflowRecorder(reg)

	rec.ObserveTransition(workflow.NodeCoding, workflow.NodeCoding)
	rec.ObserveTransition(workflow.NodeCoding, workflow.NodeCoding)
	rec.ObserveTransition(workflow.NodeCoding, workflow.NodeReviewing)
	rec.ObserveStage(workflow.NodeCoding, 2*time.Second)
	rec.IncStageError(workflow.NodeCoding, workflow.ClassTransientTool)
	rec.IncRun(workflow.RunApproved)

	assert.InDelta(t, 2, testutil.ToFloat64(rec.transitions.WithLabelValues("CODING", "CODING")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.transitions.WithLabelValues("CODING", "REVIEWING")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.stageErrors.WithLabelValues("CODING", "transient_tool")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.runs.WithLabelValues("approved")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(rec.stageDuration))
}

func TestWriteText(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewWorkflowRecorder(reg).IncRun(workflow.RunFailed)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, reg))
	assert.Contains(t, buf.String(), `workflow_runs_total{result="failed"} 1`)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, WriteTextFile(path, reg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(data))
}

func TestServerServesAndShutsDown(t *testing.T) {
	reg := NewRegistry()
	NewWorkflowRecorder(reg).IncRun(workflow.RunApproved)

	srv, err := Listen("127.0.0.1:0", reg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	assert.Contains(t, string(body), "workflow_runs_total")
	assert.Contains(t, string(body), "go_goroutines")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestListenTakenPort(t *testing.T) {
	first, err := Listen("127.0.0.1:0", prometheus.NewRegistry(), nil)
	require.NoError(t, err)
	defer func() { _ = first.ln.Close() }()

	_, err = Listen(first.Addr(), prometheus.NewRegistry(), nil)
	assert.Error(t, err)
}

func TestQueryService_GetStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		query := r.Form.Get("query")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(query, "workflow_runs_total"):
			_, _ = io.WriteString(w, `{"status":"success","data":{"resultType":"vector","result":[
				{"metric":{"result":"approved"},"value":[1700000000,"3"]},
				{"metric":{"result":"failed"},"value":[1700000000,"1"]}]}}`)
		case strings.Contains(query, "llm_tokens_total"):
			_, _ = io.WriteString(w, `{"status":"success","data":{"resultType":"vector","result":[
				{"metric":{"agent_id":"coder","type":"prompt"},"value":[1700000000,"100"]},
				{"metric":{"agent_id":"coder","type":"completion"},"value":[1700000000,"40"]},
				{"metric":{"agent_id":"planner","type":"prompt"},"value":[1700000000,"10"]}]}}`)
		default:
			http.Error(w, "unexpected query", http.StatusBadRequest)
		}
	}))
	defer server.Close()

	q, err := NewQueryService(server.URL)
	require.NoError(t, err)

	stats, err := q.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"approved": 3, "failed": 1}, stats.Runs)
	require.Len(t, stats.Tokens, 2)
	assert.Equal(t, TokenUsage{AgentID: "coder", PromptTokens: 100, CompletionTokens: 40, TotalTokens: 140}, stats.Tokens[0])
	assert.Equal(t, "planner", stats.Tokens[1].AgentID)
	assert.Equal(t, int64(10), stats.Tokens[1].TotalTokens)
}

func TestQueryService_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"status":"error","errorType":"bad_data","error":"parse error"}`)
	}))
	defer server.Close()

	q, err := NewQueryService(server.URL)
	require.NoError(t, err)
	_, err = q.GetStats(context.Background())
	assert.Error(t, err)
}
