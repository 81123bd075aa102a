package httphandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/mrpanel/internal/application"
)

func eventNames(body string) []string {
	var names []string
	for _, line := range strings.Split(body, "\n") {
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			names = append(names, name)
		}
	}
	return names
}

func TestStreamEvents_DisposalWithFullBuffer(t *testing.T) {
	// The buffer is full of updates, so the disposal event itself was dropped.
	events := make(chan application.Event, eventBufferSize)
	for range eventBufferSize {
		events <- application.Event{Kind: application.EventDiscussionsUpdated, SessionID: "s1"}
	}
	done := make(chan struct{})
	close(done)

	rec := httptest.NewRecorder()
	finished := make(chan struct{})
	go func() {
		streamEvents(context.Background(), rec, http.NewResponseController(rec), "s1", done, events)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after disposal")
	}
	names := eventNames(rec.Body.String())
	assert.NotEmpty(t, names)
	assert.Equal(t, "sessionDisposed", names[len(names)-1])
	assert.Equal(t, 1, strings.Count(rec.Body.String(), "event: sessionDisposed"))
}

func TestStreamEvents_BufferedDisposalWrittenOnce(t *testing.T) {
	events := make(chan application.Event, eventBufferSize)
	events <- application.Event{Kind: application.EventVersionChanged, SessionID: "s1", VersionID: 7}
	events <- application.Event{Kind: application.EventSessionDisposed, SessionID: "s1"}
	done := make(chan struct{})
	close(done)

	rec := httptest.NewRecorder()
	streamEvents(context.Background(), rec, http.NewResponseController(rec), "s1", done, events)

	assert.Equal(t, []string{"versionChanged", "sessionDisposed"}, eventNames(rec.Body.String()))
	assert.Contains(t, rec.Body.String(), `"version_id":7`)
}

func TestStreamEvents_ClientGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	streamEvents(ctx, rec, http.NewResponseController(rec), "s1", make(chan struct{}), make(chan application.Event))

	assert.Empty(t, rec.Body.String())
}
