package model

import "time"

// RunStatus represents the current state of an analysis run.
type RunStatus string

const (
	RunStatusComplete RunStatus = "complete"
	RunStatusEmpty    RunStatus = "empty" // no address point fell within a boundary
	RunStatusFailed   RunStatus = "failed"
)

// Run is one persisted analysis of a drawing against a dataset.
type Run struct {
	ID        string        `json:"id" yaml:"id"`
	Region    string        `json:"region,omitempty" yaml:"region,omitempty"`
	Drawing   string        `json:"drawing" yaml:"drawing"`
	Dataset   string        `json:"dataset" yaml:"dataset"`
	Connected string        `json:"connected,omitempty" yaml:"connected,omitempty"`
	Radius    float64       `json:"radius" yaml:"radius"`
	Status    RunStatus     `json:"status" yaml:"status"`
	Record    *ResultRecord `json:"record,omitempty" yaml:"record,omitempty"`
	Output    string        `json:"output,omitempty" yaml:"output,omitempty"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at" yaml:"created_at"`
}
