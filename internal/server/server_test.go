// internal/server/server_test.go
package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lodestar-research/lodestar/api/schemas"
	"github.com/lodestar-research/lodestar/internal/config"
	"github.com/lodestar-research/lodestar/internal/crawler"
)

// stubRunner completes instantly unless block is set, in which case it waits
// for context cancellation.
type stubRunner struct {
	mu     sync.Mutex
	block  bool
	runs   []crawler.Request
	result schemas.SessionResult
}

func (s *stubRunner) Run(ctx context.Context, req crawler.Request) (schemas.SessionResult, error) {
	s.mu.Lock()
	s.runs = append(s.runs, req)
	block := s.block
	result := s.result
	s.mu.Unlock()
	if block {
		<-ctx.Done()
		return result, ctx.Err()
	}
	return result, nil
}

func newTestServer(t *testing.T, runner SessionRunner) *Server {
	t.Helper()
	srv := New(config.ServerConfig{Port: 0, ShutdownTimeout: 2 * time.Second}, runner, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func waitForStatus(t *testing.T, handler http.Handler, jobID string, want JobStatus) Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec := doRequest(t, handler, http.MethodGet, "/jobs/"+jobID, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var job Job
		decodeBody(t, rec, &job)
		if job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return Job{}
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, &stubRunner{})
	rec := doRequest(t, srv.Routes(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestServer_SubmitAndComplete(t *testing.T) {
	runner := &stubRunner{result: schemas.SessionResult{Success: true, ArticlesCollected: 3}}
	srv := newTestServer(t, runner)
	handler := srv.Routes()

	rec := doRequest(t, handler, http.MethodPost, "/crawl",
		`{"subject":"ACME Corp","topic":"stock outlook","goal":"collect news","sources":["https://example.com"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted map[string]string
	decodeBody(t, rec, &accepted)
	require.NotEmpty(t, accepted["jobId"])
	assert.Equal(t, "queued", accepted["status"])

	job := waitForStatus(t, handler, accepted["jobId"], JobCompleted)
	require.NotNil(t, job.Result)
	assert.True(t, job.Result.Success)
	assert.Equal(t, 3, job.Result.ArticlesCollected)
	assert.NotNil(t, job.FinishedAt)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.runs, 1)
	assert.Equal(t, "ACME Corp", runner.runs[0].Subject)
}

func TestServer_SubmitValidation(t *testing.T) {
	srv := newTestServer(t, &stubRunner{})
	handler := srv.Routes()

	rec := doRequest(t, handler, http.MethodPost, "/crawl", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, handler, http.MethodPost, "/crawl", `{"sources":["https://example.com"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, handler, http.MethodPost, "/crawl", `{"subject":"ACME"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ListJobs(t *testing.T) {
	srv := newTestServer(t, &stubRunner{})
	handler := srv.Routes()

	for i := 0; i < 2; i++ {
		rec := doRequest(t, handler, http.MethodPost, "/crawl",
			`{"subject":"ACME","sources":["https://example.com"]}`)
		require.Equal(t, http.StatusAccepted, rec.Code)
	}

	rec := doRequest(t, handler, http.MethodGet, "/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Jobs []Job `json:"jobs"`
	}
	decodeBody(t, rec, &listing)
	assert.Len(t, listing.Jobs, 2)
}

func TestServer_GetUnknownJob(t *testing.T) {
	srv := newTestServer(t, &stubRunner{})
	rec := doRequest(t, srv.Routes(), http.MethodGet, "/jobs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CancelRunningJob(t *testing.T) {
	runner := &stubRunner{block: true}
	srv := newTestServer(t, runner)
	handler := srv.Routes()

	rec := doRequest(t, handler, http.MethodPost, "/crawl",
		`{"subject":"ACME","sources":["https://example.com"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var accepted map[string]string
	decodeBody(t, rec, &accepted)
	jobID := accepted["jobId"]

	waitForStatus(t, handler, jobID, JobRunning)

	rec = doRequest(t, handler, http.MethodDelete, "/jobs/"+jobID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	job := waitForStatus(t, handler, jobID, JobCancelled)
	assert.Equal(t, JobCancelled, job.Status)

	// A second cancel conflicts.
	deadline := time.Now().Add(time.Second)
	for {
		rec = doRequest(t, handler, http.MethodDelete, "/jobs/"+jobID, "")
		if rec.Code == http.StatusConflict {
			break
		}
		require.True(t, time.Now().Before(deadline))
		time.Sleep(5 * time.Millisecond)
	}
}
