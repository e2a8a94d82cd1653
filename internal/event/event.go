// Package event implements the process-scoped event log: a JSON array
// of events is POSTed to a URL or piped into a command's stdin when the
// user has configured an events.publish hook.
package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/toolpin/toolpin/internal/hook"
)

// Kind discriminates one event's shape.
type Kind string

const (
	KindStart   Kind = "start"
	KindEnd     Kind = "end"
	KindError   Kind = "error"
	KindToolEnd Kind = "toolend"
	KindArgs    Kind = "args"
)

// Body is the kind-specific payload nested under an Event's "event" key.
type Body struct {
	Kind     Kind        `json:"kind"`
	Tool     string      `json:"tool,omitempty"`
	Args     []string    `json:"args,omitempty"`
	Version  string      `json:"version,omitempty"`
	ExitCode int         `json:"exitCode,omitempty"`
	Message  string      `json:"message,omitempty"`
	Extra    interface{} `json:"extra,omitempty"`
}

// Event is one entry in the published event array.
type Event struct {
	Timestamp int64  `json:"timestamp"`
	Name      string `json:"name"`
	Event     Body   `json:"event"`
}

// Log accumulates events for a single process invocation. Publish is
// called at most once, at exit.
type Log struct {
	mu     sync.Mutex
	events []Event
}

// New returns an empty event log.
func New() *Log { return &Log{} }

// Record appends one event, stamping it with the current time.
func (l *Log) Record(name string, body Body) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, Event{
		Timestamp: nowMillis(),
		Name:      name,
		Event:     body,
	})
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// Publish delivers the accumulated events per the configured hook, if
// any. A nil or unset hook makes this a no-op: publication is opt-in.
func (l *Log) Publish(logger hclog.Logger, events *hook.EventsHooks) error {
	l.mu.Lock()
	payload := make([]Event, len(l.events))
	copy(payload, l.events)
	l.mu.Unlock()

	if events == nil || events.Publish == nil || len(payload) == 0 {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling events: %w", err)
	}

	switch {
	case events.Publish.URL != "":
		return publishHTTP(logger, events.Publish.URL, data)
	case events.Publish.Bin != "":
		return publishBin(events.Publish.Bin, data)
	default:
		return nil
	}
}

func publishHTTP(logger hclog.Logger, url string, data []byte) error {
	client := retryablehttp.NewClient()
	client.Logger = logger
	client.RetryMax = 2
	req, err := retryablehttp.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building events.publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("posting events: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("events.publish endpoint returned %s", resp.Status)
	}
	return nil
}

func publishBin(command string, data []byte) error {
	cmd := exec.Command("sh", "-c", command)
	cmd.Stdin = bytes.NewReader(data)
	return cmd.Run()
}
