// Package actionplan manages care plans through the platform's JSON REST
// surface. This is the only part of the SDK that speaks JSON; everything
// else goes through the XML envelope.
package actionplan

import "github.com/google/uuid"

// Objective is one measurable goal inside a plan.
type Objective struct {
	ID          uuid.UUID `json:"id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	State       string    `json:"state,omitempty"`
}

// Plan is a care plan assigned to a record.
type Plan struct {
	ID          uuid.UUID   `json:"id,omitempty"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	ImageURL    string      `json:"imageUrl,omitempty"`
	Category    string      `json:"category,omitempty"`
	Status      string      `json:"status,omitempty"`
	Objectives  []Objective `json:"objectives,omitempty"`
}
