package models

import (
	"fmt"
	"time"
)

// Search outcomes
const (
	StatusOK    = "ok"
	StatusEmpty = "empty"
	StatusError = "error"
)

// SearchRecord represents the search_history table structure
type SearchRecord struct {
	ID           int64             `json:"id" db:"id"`
	RequestID    string            `json:"request_id,omitempty" db:"request_id"`
	Tool         string            `json:"tool" db:"tool"`
	Engine       string            `json:"engine" db:"engine"`
	Params       map[string]string `json:"params" db:"params"`
	Status       string            `json:"status" db:"status"`
	ResultCount  int               `json:"result_count" db:"result_count"`
	ErrorMessage string            `json:"error_message,omitempty" db:"error_message"`
	Result       string            `json:"result,omitempty" db:"result"`
	DurationMS   int64             `json:"duration_ms" db:"duration_ms"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the SearchRecord model
func (SearchRecord) TableName() string {
	return "search_history"
}

// NewSearchRecord creates a record for one tool call
func NewSearchRecord(tool, engine string, params map[string]string) *SearchRecord {
	return &SearchRecord{
		Tool:      tool,
		Engine:    engine,
		Params:    params,
		Status:    StatusOK,
		CreatedAt: time.Now().UTC(),
	}
}

// WithoutResult returns a copy without the stored result text
func (r *SearchRecord) WithoutResult() *SearchRecord {
	c := *r
	c.Result = ""
	return &c
}

// Summary renders a one-line description used by listings
func (r *SearchRecord) Summary() string {
	var what string
	switch r.Tool {
	case "search_flights":
		what = fmt.Sprintf("%s -> %s on %s", r.Params["departure_id"], r.Params["arrival_id"], r.Params["outbound_date"])
		if ret := r.Params["return_date"]; ret != "" {
			what += ", back " + ret
		}
	case "search_hotels":
		what = fmt.Sprintf("%s %s..%s", r.Params["q"], r.Params["check_in_date"], r.Params["check_out_date"])
	default:
		what = r.Engine
	}

	outcome := r.Status
	switch r.Status {
	case StatusOK:
		outcome = fmt.Sprintf("%d results", r.ResultCount)
	case StatusError:
		outcome = "error: " + r.ErrorMessage
	}

	return fmt.Sprintf("#%d %s %s [%s] %dms", r.ID, r.Tool, what, outcome, r.DurationMS)
}
