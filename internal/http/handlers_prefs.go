package http

import (
	"net/http"

	"expenses/internal/log"
)

func (s *Server) handleGetFilters(w http.ResponseWriter, r *http.Request) {
	st, err := s.prefs.Load(r.Context(), sessionID(r.Context()))
	if err != nil {
		s.writeError(w, r, err, "", "Failed to load filter preferences", log.ComponentPrefs, log.OpRead)
		return
	}
	OK(toFilterStateJSON(st)).Write(w)
}

func (s *Server) handlePutFilters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := sessionID(ctx)

	var req filterStateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}
	st, err := s.prefs.Load(ctx, session)
	if err != nil {
		s.writeError(w, r, err, "", "Failed to load filter preferences", log.ComponentPrefs, log.OpRead)
		return
	}
	if err := req.apply(&st, s.now()); err != nil {
		BadRequestError(validationMessage(err)).Write(w)
		return
	}
	if err := s.prefs.Save(ctx, session, st); err != nil {
		s.writeError(w, r, err, "", "Failed to save filter preferences", log.ComponentPrefs, log.OpUpdate)
		return
	}
	OK(toFilterStateJSON(st)).Write(w)
}

func (s *Server) handleDeleteFilters(w http.ResponseWriter, r *http.Request) {
	if err := s.prefs.Reset(r.Context(), sessionID(r.Context())); err != nil {
		s.writeError(w, r, err, "", "Failed to reset filter preferences", log.ComponentPrefs, log.OpDelete)
		return
	}
	Success().Write(w)
}
