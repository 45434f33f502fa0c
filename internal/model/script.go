// Package model defines the data structures shared across the application.
package model

import "time"

// Line is a single dialogue entry inside a script: who speaks, and what they say.
type Line struct {
	Character string `json:"character"`
	Dialogue  string `json:"dialogue"`
}

// Script represents one archived script snippet.
//
// Title defaults to "Untitled" when omitted at creation and is nullable in
// storage. Characters and Lines are stored as JSON columns; the service layer
// guarantees both are non-empty with non-blank entries for every stored row.
// UpdatedAt is maintained internally but is not part of the wire shape.
type Script struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Characters []string  `json:"characters"`
	Lines      []Line    `json:"lines"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"-"`
}

// UntitledTitle is the sentinel title applied when a script is created
// without one.
const UntitledTitle = "Untitled"
