package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// TodoStatus is the lifecycle state of a single todo item.
type TodoStatus string

const (
	TodoStatusPending    TodoStatus = "pending"
	TodoStatusInProgress TodoStatus = "in_progress"
	TodoStatusCompleted  TodoStatus = "completed"
)

// Todo is one item of a session's todo list as written by an assistant tool.
// Items are immutable once read from disk; editing happens in the tools that
// own the files, not here.
type Todo struct {
	ID         string     `json:"id,omitempty"`
	Content    string     `json:"content"`
	Status     TodoStatus `json:"status"`
	ActiveForm string     `json:"activeForm,omitempty"`
	CreatedAt  *EventTime `json:"createdAt,omitempty"`
	UpdatedAt  *EventTime `json:"updatedAt,omitempty"`
}

// IsActive reports whether the item still needs work. Anything that is not
// completed counts as active, including unknown status strings.
func (t Todo) IsActive() bool {
	return t.Status != TodoStatusCompleted
}

// EventTime is a time.Time that tolerates the timestamp spellings found in
// provider files: RFC3339 strings, epoch seconds, and epoch milliseconds,
// quoted or bare.
type EventTime struct {
	time.Time
}

// UnmarshalJSON decodes the mixed timestamp formats providers write.
func (e *EventTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		e.Time = time.Time{}
		return nil
	}

	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		e.Time = ts
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		e.Time = ts
		return nil
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Unknown format; treat as absent rather than failing the whole record
		e.Time = time.Time{}
		return nil
	}
	// Heuristic: values past the year ~33658 as seconds are milliseconds
	if n > 1e12 {
		e.Time = time.UnixMilli(int64(n))
	} else {
		e.Time = time.Unix(int64(n), 0)
	}
	return nil
}

// MarshalJSON renders the time as RFC3339, or null when unset.
func (e EventTime) MarshalJSON() ([]byte, error) {
	if e.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(e.Format(time.RFC3339))
}
