package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/italypaleale/eventchain/eventloop"
	"github.com/italypaleale/eventchain/failurelog"
)

// fakeLoop implements Loop.
type fakeLoop struct {
	lock     sync.Mutex
	enqueued []*eventloop.Event
	err      error
}

func (f *fakeLoop) Enqueue(ev *eventloop.Event) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, ev)
	return nil
}

func (f *fakeLoop) Stats() eventloop.Stats {
	f.lock.Lock()
	defer f.lock.Unlock()

	return eventloop.Stats{
		QueueLength: len(f.enqueued),
		Executed:    7,
		Failed:      1,
		Running:     true,
	}
}

// fakeFailures implements FailureLister.
type fakeFailures []failurelog.Entry

func (f fakeFailures) List() []failurelog.Entry {
	return f
}

func newTestServer(loop Loop, failures FailureLister) *Server {
	who := eventloop.NewEvent("Event 1 for who", nil, nil)
	knock := eventloop.NewEvent("Event 2 for knock - knock", nil, who)
	events := map[string]*eventloop.Event{
		"knock": knock,
		"who":   who,
	}

	return NewServer(ServerOpts{
		Loop: loop,
		Lookup: func(name string) (*eventloop.Event, bool) {
			ev, ok := events[name]
			return ev, ok
		},
		Failures: failures,
		HostID:   "host-1",
	})
}

func TestHandleStatus(t *testing.T) {
	t.Run("includes stats and failures", func(t *testing.T) {
		now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
		srv := newTestServer(&fakeLoop{}, fakeFailures{
			{Label: "knock", Count: 2, LastError: "simulated", FirstSeen: now, LastSeen: now},
		})

		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, ContentTypeJson, rec.Header().Get(HeaderContentType))
		assert.Equal(t, "host-1", rec.Header().Get(HeaderXHostID))

		var res map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.EqualValues(t, 0, res["queueLength"])
		assert.EqualValues(t, 7, res["executed"])
		assert.EqualValues(t, 1, res["failed"])
		assert.Equal(t, true, res["running"])

		failures, ok := res["failures"].([]any)
		require.True(t, ok)
		require.Len(t, failures, 1)
		assert.Equal(t, "knock", failures[0].(map[string]any)["label"])
		assert.EqualValues(t, 2, failures[0].(map[string]any)["count"])
	})

	t.Run("empty failures without a failure log", func(t *testing.T) {
		srv := newTestServer(&fakeLoop{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"failures":[]`)
	})

	t.Run("method not allowed", func(t *testing.T) {
		srv := newTestServer(&fakeLoop{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/status", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHandleEnqueue(t *testing.T) {
	t.Run("enqueues the registered event", func(t *testing.T) {
		loop := &fakeLoop{}
		srv := newTestServer(loop, nil)

		req := httptest.NewRequest(http.MethodPost, "/events/knock", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)

		var res EnqueueResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, "knock", res.Name)
		assert.Equal(t, "Event 2 for knock - knock", res.Label)
		assert.Equal(t, 1, res.QueueLength)

		require.Len(t, loop.enqueued, 1)
		assert.Equal(t, "Event 2 for knock - knock", loop.enqueued[0].Label())
	})

	t.Run("same event twice", func(t *testing.T) {
		loop := &fakeLoop{}
		srv := newTestServer(loop, nil)

		for range 2 {
			req := httptest.NewRequest(http.MethodPost, "/events/knock", nil)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			require.Equal(t, http.StatusAccepted, rec.Code)
		}

		require.Len(t, loop.enqueued, 2)
		assert.Same(t, loop.enqueued[0], loop.enqueued[1])
	})

	t.Run("event not found", func(t *testing.T) {
		loop := &fakeLoop{}
		srv := newTestServer(loop, nil)

		req := httptest.NewRequest(http.MethodPost, "/events/nope", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)

		var res ApiError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, "EVENT_NOT_FOUND", res.Code)
		assert.Equal(t, map[string]string{"name": "nope"}, res.Metadata)
		assert.Empty(t, loop.enqueued)
	})

	t.Run("loop stopped", func(t *testing.T) {
		srv := newTestServer(&fakeLoop{err: eventloop.ErrLoopStopped}, nil)

		req := httptest.NewRequest(http.MethodPost, "/events/who", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"LOOP_STOPPED"`)
	})

	t.Run("other errors", func(t *testing.T) {
		srv := newTestServer(&fakeLoop{err: errors.New("simulated")}, nil)

		req := httptest.NewRequest(http.MethodPost, "/events/who", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		var res ApiError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, "INTERNAL", res.Code)
		assert.Equal(t, "simulated", res.InnerError)
	})
}

func TestHandleEnqueueWithRealLoop(t *testing.T) {
	loop, err := eventloop.New(eventloop.Options{})
	require.NoError(t, err)
	t.Cleanup(loop.Stop)

	srv := newTestServer(loop, nil)

	req := httptest.NewRequest(http.MethodPost, "/events/knock", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, loop.Len())

	// Executing knock schedules who
	ok, err := loop.Step(t.Context())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, loop.Len())

	loop.Stop()
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events/knock", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
