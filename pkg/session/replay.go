package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventKind names a replay log entry.
type EventKind string

const (
	EventSessionStarted  EventKind = "session_started"
	EventTodosListed     EventKind = "todos_listed"
	EventDecision        EventKind = "decision"
	EventActionStarted   EventKind = "action_started"
	EventActionCompleted EventKind = "action_completed"
	EventActionFailed    EventKind = "action_failed"
	EventError           EventKind = "error"
	EventSessionFinished EventKind = "session_finished"
)

// Event is one line of a replay log.
type Event struct {
	Time      time.Time       `json:"time"`
	SessionID string          `json:"session_id"`
	Kind      EventKind       `json:"kind"`
	ActionID  string          `json:"action_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// ReplayPath is where a session's replay log lives under dataDir.
func ReplayPath(dataDir, sessionID string) string {
	return filepath.Join(dataDir, "replay", sessionID+".jsonl")
}

// Recorder appends events to a JSONL replay log. A nil Recorder discards
// everything, so callers need not check whether replay is enabled.
type Recorder struct {
	mu        sync.Mutex
	sessionID string
	f         *os.File
	enc       *json.Encoder
}

// OpenRecorder opens or creates the replay log at path for appending.
func OpenRecorder(path, sessionID string) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &Recorder{sessionID: sessionID, f: f, enc: json.NewEncoder(f)}, nil
}

// Record appends one event. Payloads that fail to encode are dropped with
// an error.
func (r *Recorder) Record(kind EventKind, actionID string, data any) error {
	if r == nil {
		return nil
	}
	ev := Event{Time: time.Now().UTC(), SessionID: r.sessionID, Kind: kind, ActionID: actionID}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode %s event: %w", kind, err)
		}
		ev.Data = raw
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enc == nil {
		return os.ErrClosed
	}
	return r.enc.Encode(ev)
}

// Close flushes and closes the log. Closing twice is a no-op.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f, r.enc = nil, nil
	return err
}

// ReadReplay loads every event of a replay log in order.
func ReadReplay(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			return events, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		events = append(events, ev)
	}
	return events, sc.Err()
}
