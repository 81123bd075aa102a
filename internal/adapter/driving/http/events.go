package httphandler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ericfisherdev/mrpanel/internal/application"
)

const (
	// keepAliveInterval is how often an idle event stream sends a comment line.
	keepAliveInterval = 25 * time.Second
	eventBufferSize   = 16
)

// eventPayload is the data line of one server-sent event.
type eventPayload struct {
	SessionID string `json:"session_id"`
	VersionID int    `json:"version_id,omitempty"`
}

// Events streams session events as server-sent events until the client goes
// away or the session is disposed.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	// Subscribe before the headers go out so no event between the client
	// seeing 200 and the subscription is lost. A full buffer drops updates;
	// disposal is still seen through s.Done.
	events := make(chan application.Event, eventBufferSize)
	unsubscribe := s.Subscribe(func(e application.Event) {
		select {
		case events <- e:
		default:
			h.logger.Warn("event stream lagging, dropping event", "session", e.SessionID, "kind", e.Kind)
		}
	})
	defer unsubscribe()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Warn("event stream not flushable", "session", s.ID(), "error", err)
		return
	}

	streamEvents(r.Context(), w, rc, s.ID(), s.Done(), events)
}

// streamEvents copies events to w until ctx ends or done closes. The stream
// always ends with a sessionDisposed event once done has closed.
func streamEvents(ctx context.Context, w io.Writer, rc *http.ResponseController, sessionID string, done <-chan struct{}, events <-chan application.Event) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case e := <-events:
			if err := writeEvent(w, e); err != nil {
				return
			}
			if e.Kind == application.EventSessionDisposed {
				_ = rc.Flush()
				return
			}
		case <-done:
			finishStream(w, sessionID, events)
			_ = rc.Flush()
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// finishStream writes whatever is still buffered, then the disposal event.
func finishStream(w io.Writer, sessionID string, events <-chan application.Event) {
	for {
		select {
		case e := <-events:
			if e.Kind == application.EventSessionDisposed {
				continue
			}
			if err := writeEvent(w, e); err != nil {
				return
			}
		default:
			_ = writeEvent(w, application.Event{Kind: application.EventSessionDisposed, SessionID: sessionID})
			return
		}
	}
}

func writeEvent(w io.Writer, e application.Event) error {
	data, err := json.Marshal(eventPayload{SessionID: e.SessionID, VersionID: e.VersionID})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data)
	return err
}
