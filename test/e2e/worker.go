package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
)

// TransportFailure as a reply status makes the stub sever the TCP
// connection instead of answering, so the dispatcher sees a transport
// error rather than an HTTP response.
const TransportFailure = -1

// RawBody makes the stub write bytes verbatim instead of JSON.
type RawBody string

// ReplyFunc computes the stub's answer for one /process call. It returns
// the HTTP status and a body that is JSON-encoded unless it is a RawBody.
type ReplyFunc func(env *models.TaskEnvelope) (int, interface{})

// WorkerStub is an in-process worker agent implementing the /health and
// /process contract. Keywords and Capabilities may be set before the
// stub's descriptor is loaded into a registry.
type WorkerStub struct {
	ID           string
	Name         string
	Keywords     []string
	Capabilities []string

	mu        sync.Mutex
	healthy   bool
	reply     ReplyFunc
	envelopes []*models.TaskEnvelope

	srv *httptest.Server
}

// NewWorkerStub starts a stub worker. It reports healthy until
// SetHealthy(false); the server is closed via t.Cleanup.
func NewWorkerStub(t *testing.T, id, name string, reply ReplyFunc) *WorkerStub {
	w := &WorkerStub{ID: id, Name: name, healthy: true, reply: reply}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", w.handleHealth)
	mux.HandleFunc("/process", w.handleProcess)
	w.srv = httptest.NewServer(mux)
	t.Cleanup(w.srv.Close)
	return w
}

// URL returns the stub's base URL.
func (w *WorkerStub) URL() string { return w.srv.URL }

// Descriptor builds the registry entry for this stub.
func (w *WorkerStub) Descriptor() *models.AgentDescriptor {
	return &models.AgentDescriptor{
		ID:           w.ID,
		Name:         w.Name,
		Keywords:     w.Keywords,
		Capabilities: w.Capabilities,
		URL:          w.srv.URL,
	}
}

// SetHealthy flips what /health reports. It does not touch the registry;
// the supervisor only notices on the next probe.
func (w *WorkerStub) SetHealthy(healthy bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.healthy = healthy
}

// SetReply swaps the /process behavior mid-test.
func (w *WorkerStub) SetReply(reply ReplyFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reply = reply
}

// Envelopes returns a snapshot of every task envelope received.
func (w *WorkerStub) Envelopes() []*models.TaskEnvelope {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*models.TaskEnvelope, len(w.envelopes))
	copy(out, w.envelopes)
	return out
}

// LastEnvelope returns the most recent envelope, failing the test when
// the stub was never called.
func (w *WorkerStub) LastEnvelope(t *testing.T) *models.TaskEnvelope {
	t.Helper()
	envelopes := w.Envelopes()
	require.NotEmpty(t, envelopes, "worker %s received no envelopes", w.ID)
	return envelopes[len(envelopes)-1]
}

// CallCount reports how many /process calls arrived.
func (w *WorkerStub) CallCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.envelopes)
}

func (w *WorkerStub) handleHealth(rw http.ResponseWriter, _ *http.Request) {
	w.mu.Lock()
	healthy := w.healthy
	w.mu.Unlock()

	if !healthy {
		http.Error(rw, `{"status":"unhealthy"}`, http.StatusServiceUnavailable)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	_, _ = rw.Write([]byte(`{"status":"healthy"}`))
}

func (w *WorkerStub) handleProcess(rw http.ResponseWriter, r *http.Request) {
	var env models.TaskEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	w.mu.Lock()
	w.envelopes = append(w.envelopes, &env)
	status, body := w.reply(&env)
	w.mu.Unlock()

	if status == TransportFailure {
		severConnection(rw)
		return
	}

	if raw, ok := body.(RawBody); ok {
		rw.Header().Set("Content-Type", "text/plain")
		rw.WriteHeader(status)
		_, _ = rw.Write([]byte(raw))
		return
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(body)
}

// severConnection kills the underlying TCP connection mid-request.
func severConnection(rw http.ResponseWriter) {
	hj, ok := rw.(http.Hijacker)
	if !ok {
		panic("response writer does not support hijacking")
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	_ = conn.Close()
}

// ────────────────────────────────────────────────────────────
// Reply builders
// ────────────────────────────────────────────────────────────

// Report replies 200 with a completion report carrying the given status
// and results, correlated to the incoming envelope.
func Report(status models.ReportStatus, results map[string]interface{}) ReplyFunc {
	return func(env *models.TaskEnvelope) (int, interface{}) {
		return http.StatusOK, completionReport(env, status, results)
	}
}

// SuccessReport replies SUCCESS with results.output set to text.
func SuccessReport(output string) ReplyFunc {
	return Report(models.ReportStatusSuccess, map[string]interface{}{"output": output})
}

// FailureReport replies FAILURE with results.error set to errText.
func FailureReport(errText string) ReplyFunc {
	return Report(models.ReportStatusFailure, map[string]interface{}{"error": errText})
}

// ClarificationReport replies with the results.clarification_needed flag
// some workers use instead of a CLARIFICATION_NEEDED status.
func ClarificationReport(message string, questions ...string) ReplyFunc {
	return Report(models.ReportStatusSuccess, map[string]interface{}{
		"clarification_needed": true,
		"message":              message,
		"clarifying_questions": questions,
	})
}

// FlakyOnce severs the connection on the first call and delegates every
// later call to next. Exercises the dispatcher's single retry.
func FlakyOnce(next ReplyFunc) ReplyFunc {
	calls := 0
	return func(env *models.TaskEnvelope) (int, interface{}) {
		calls++
		if calls == 1 {
			return TransportFailure, nil
		}
		return next(env)
	}
}

func completionReport(env *models.TaskEnvelope, status models.ReportStatus, results map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"message_id":         uuid.NewString(),
		"sender":             env.Recipient,
		"recipient":          models.EnvelopeSender,
		"type":               models.MessageTypeCompletionReport,
		"related_message_id": env.MessageID,
		"status":             string(status),
		"results":            results,
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
	}
}
