package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"smartpot/internal/models"
)

func TestWriteFrame_Format(t *testing.T) {
	var sb strings.Builder
	err := WriteFrame(&sb, Connected())
	assert.NoError(t, err)
	assert.Equal(t, "data: {\"type\":\"connected\"}\n\n", sb.String())
}

func TestWriteFrame_ErrorAndWaitingShapes(t *testing.T) {
	var sb strings.Builder
	assert.NoError(t, WriteFrame(&sb, Error("boom")))
	assert.Equal(t, "data: {\"type\":\"error\",\"message\":\"boom\"}\n\n", sb.String())

	sb.Reset()
	assert.NoError(t, WriteFrame(&sb, WaitingForData()))
	assert.True(t, strings.HasPrefix(sb.String(), `data: {"status":"waiting"`))
	assert.True(t, strings.HasSuffix(sb.String(), "\n\n"))
}

// streamHandler writes a fixed sequence of frames and closes.
func streamHandler(frames ...any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range frames {
			_ = WriteFrame(w, f)
		}
	}
}

func TestClient_DispatchesAllEventKinds(t *testing.T) {
	rssi := -55
	srv := httptest.NewServer(streamHandler(
		Connected(),
		WaitingForData(),
		models.Reading{Temperature: 95.3, RSSI: &rssi, Status: models.StatusWorking},
		Error("broker lost"),
		models.Reading{Temperature: 96.1, Status: models.StatusStopped},
	))
	defer srv.Close()

	var (
		connected int
		waiting   []string
		readings  []models.Reading
		errMsgs   []string
	)
	c := &Client{
		URL: srv.URL,
		Handler: Handler{
			OnConnected: func() { connected++ },
			OnWaiting:   func(m string) { waiting = append(waiting, m) },
			OnReading:   func(r models.Reading) { readings = append(readings, r) },
			OnError:     func(m string) { errMsgs = append(errMsgs, m) },
		},
	}

	err := c.Run(context.Background())
	assert.NoError(t, err)

	assert.Equal(t, 1, connected)
	assert.Len(t, waiting, 1)
	assert.Equal(t, []string{"broker lost"}, errMsgs)
	if assert.Len(t, readings, 2) {
		assert.Equal(t, 95.3, readings[0].Temperature)
		assert.Equal(t, models.StatusWorking, readings[0].Status)
		if assert.NotNil(t, readings[0].RSSI) {
			assert.Equal(t, -55, *readings[0].RSSI)
		}
		assert.Equal(t, models.StatusStopped, readings[1].Status)
	}
}

func TestClient_IgnoresMalformedFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {not json}\n\n"))
		_ = WriteFrame(w, models.Reading{Temperature: 42})
	}))
	defer srv.Close()

	var readings []models.Reading
	c := &Client{URL: srv.URL, Handler: Handler{
		OnReading: func(r models.Reading) { readings = append(readings, r) },
	}}

	assert.NoError(t, c.Run(context.Background()))
	if assert.Len(t, readings, 1) {
		assert.Equal(t, 42.0, readings[0].Temperature)
	}
}

func TestClient_CancelledContextReturnsContextError(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_ = WriteFrame(w, Connected())
		w.(http.Flusher).Flush()
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{URL: srv.URL, Handler: Handler{
		OnConnected: func() { cancel() },
	}}

	err := c.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestClient_BadStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := &Client{URL: srv.URL}
	err := c.Run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClient_TransportFailureSurfaces(t *testing.T) {
	srv := httptest.NewServer(streamHandler(Connected()))
	srv.Close() // immediately unreachable

	c := &Client{URL: srv.URL, HTTPClient: &http.Client{Timeout: 200 * time.Millisecond}}
	assert.Error(t, c.Run(context.Background()))
}
