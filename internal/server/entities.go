package server

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/formsync/internal/status"
	"github.com/roach88/formsync/internal/value"
)

// maxEventBytes bounds a POST /entities/events body.
const maxEventBytes = 1 << 20

func (s *Server) listEntities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.entities.States())
}

func (s *Server) getEntity(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	st, ok := s.entities.State(name)
	if !ok {
		writeError(w, http.StatusNotFound, CodeEntityNotFound, "no tracked entity "+name)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type eventResponse struct {
	Matched []string                `json:"matched"`
	States  map[string]status.State `json:"states"`
}

// postEvent decodes {"type": ..., "payload": ...} and dispatches it.
func (s *Server) postEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidEvent, "read body: "+err.Error())
		return
	}
	v, err := value.Unmarshal(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidEvent, err.Error())
		return
	}
	obj, ok := v.(value.Object)
	if !ok {
		writeError(w, http.StatusBadRequest, CodeInvalidEvent, "event must be an object")
		return
	}
	typ, ok := obj["type"].(value.String)
	if !ok || typ == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidEvent, "type: required string")
		return
	}

	matched := s.entities.Dispatch(status.Event{Type: string(typ), Payload: obj["payload"]})
	if len(matched) == 0 {
		writeError(w, http.StatusUnprocessableEntity, CodeUnhandledEvent, "no tracked entity handles "+string(typ))
		return
	}
	states := make(map[string]status.State, len(matched))
	for _, name := range matched {
		states[name], _ = s.entities.State(name)
	}
	writeJSON(w, http.StatusOK, eventResponse{Matched: matched, States: states})
}
