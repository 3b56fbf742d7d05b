package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"smartpot/internal/models"
)

// Handler receives decoded stream events. Nil callbacks are skipped.
type Handler struct {
	OnConnected func()
	OnWaiting   func(message string)
	OnReading   func(models.Reading)
	OnError     func(message string)
}

// Client consumes a fan-out stream endpoint. One Client holds at most one
// stream connection; Run blocks until the context is cancelled or the
// stream breaks.
type Client struct {
	URL        string
	HTTPClient *http.Client
	Handler    Handler
}

// frame is the union of all payload shapes the server emits. Telemetry
// frames are recognized by the presence of a temperature.
type frame struct {
	Type        string   `json:"type"`
	Status      string   `json:"status"`
	Message     string   `json:"message"`
	Temperature *float64 `json:"temperature"`
	RSSI        *int     `json:"rssi"`
}

// Run attaches to the stream and dispatches events until ctx is cancelled
// (returns ctx.Err()) or the transport fails (returns the transport error).
func (c *Client) Run(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("open stream: unexpected status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case line == "":
			if data.Len() > 0 {
				c.dispatch(data.String())
				data.Reset()
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("read stream: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func (c *Client) dispatch(payload string) {
	var f frame
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		// Malformed frames are dropped, mirroring the bridge's parse policy.
		return
	}

	h := c.Handler
	switch {
	case f.Type == TypeConnected:
		if h.OnConnected != nil {
			h.OnConnected()
		}
	case f.Type == TypeError:
		if h.OnError != nil {
			h.OnError(f.Message)
		}
	case f.Status == "waiting":
		if h.OnWaiting != nil {
			h.OnWaiting(f.Message)
		}
	case f.Temperature != nil:
		if h.OnReading != nil {
			h.OnReading(models.Reading{
				Temperature: *f.Temperature,
				RSSI:        f.RSSI,
				Status:      models.DeviceStatus(f.Status),
			})
		}
	}
}
