package model

import "time"

// Pipeline is a CI pipeline run.
type Pipeline struct {
	ID        int
	Status    string
	Ref       string
	SHA       string
	WebURL    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Job is one job of a pipeline.
type Job struct {
	ID        int
	Name      string
	Stage     string
	Status    string
	WebURL    string
	CreatedAt time.Time
}

// CIValidation is the outcome of validating a CI configuration.
type CIValidation struct {
	Valid    bool
	Errors   []string
	Warnings []string
}
