// Package testutil provides testing utilities for chalbox tests.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Call is a request recorded by a Backend.
type Call struct {
	Path        string
	ChallengeID int
	CSRFToken   string
	Session     string
	RequestID   string
	ContentType string
	Accept      string
}

// Reply is a canned response for one endpoint path.
type Reply struct {
	Status int
	// Body is sent verbatim when set.
	Body string
	// JSON is marshaled when Body is empty.
	JSON any
}

// Backend is a fake container API served by httptest.
type Backend struct {
	*httptest.Server

	mu      sync.Mutex
	calls   []Call
	replies map[string][]Reply
	hook    func(Call)
}

// NewBackend starts a fake backend that is closed when the test completes.
// Paths without a queued reply answer 404 with a non-JSON body.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{replies: make(map[string][]Reply)}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Close)
	return b
}

// Reply queues replies for path. The last queued reply repeats once the
// queue is drained.
func (b *Backend) Reply(path string, replies ...Reply) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.replies[path] = append(b.replies[path], replies...)
	return b
}

// JSON queues a 200 reply with v marshaled as the body.
func (b *Backend) JSON(path string, v any) *Backend {
	return b.Reply(path, Reply{Status: http.StatusOK, JSON: v})
}

// OnCall registers a hook run for every request before it is answered.
func (b *Backend) OnCall(fn func(Call)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hook = fn
}

// Calls returns a copy of the recorded requests.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	call := Call{
		Path:        r.URL.Path,
		CSRFToken:   r.Header.Get("CSRF-Token"),
		RequestID:   r.Header.Get("X-Request-ID"),
		ContentType: r.Header.Get("Content-Type"),
		Accept:      r.Header.Get("Accept"),
	}
	if c, err := r.Cookie("session"); err == nil {
		call.Session = c.Value
	}

	var body struct {
		ChallengeID int `json:"chal_id"`
	}
	raw, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(raw, &body)
	call.ChallengeID = body.ChallengeID

	b.mu.Lock()
	b.calls = append(b.calls, call)
	hook := b.hook
	queue := b.replies[r.URL.Path]
	var reply Reply
	found := len(queue) > 0
	if found {
		reply = queue[0]
		if len(queue) > 1 {
			b.replies[r.URL.Path] = queue[1:]
		}
	}
	b.mu.Unlock()

	if hook != nil {
		hook(call)
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !found {
		http.Error(w, "<html>not found</html>", http.StatusNotFound)
		return
	}

	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	payload := []byte(reply.Body)
	if reply.Body == "" && reply.JSON != nil {
		payload, _ = json.Marshal(reply.JSON)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
