package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/italypaleale/eventchain/eventloop"
	"github.com/italypaleale/eventchain/failurelog"
)

// StatusResponse is the response for GET /status
type StatusResponse struct {
	eventloop.Stats
	Failures []failurelog.Entry `json:"failures"`
}

// EnqueueResponse is the response for POST /events/{name}
type EnqueueResponse struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	QueueLength int    `json:"queueLength"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	res := StatusResponse{
		Stats:    s.loop.Stats(),
		Failures: []failurelog.Entry{},
	}
	if s.failures != nil {
		res.Failures = s.failures.List()
	}

	RespondWithJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ev, ok := s.lookup(name)
	if !ok {
		ErrEventNotFound.
			Clone(WithMetadata(map[string]string{"name": name})).
			WriteResponse(w, r)
		return
	}

	err := s.loop.Enqueue(ev)
	switch {
	case errors.Is(err, eventloop.ErrLoopStopped):
		ErrLoopStopped.WriteResponse(w, r)
		return
	case err != nil:
		s.log.ErrorContext(r.Context(), "Error enqueueing event", slog.String("name", name), slog.Any("error", err))
		ErrInternal.Clone(WithInnerError(err)).WriteResponse(w, r)
		return
	}

	s.log.InfoContext(r.Context(), "Enqueued event from admin API", slog.String("name", name), slog.String("event", ev.Label()))
	RespondWithJSON(w, r, http.StatusAccepted, EnqueueResponse{
		Name:        name,
		Label:       ev.Label(),
		QueueLength: s.loop.Stats().QueueLength,
	})
}
