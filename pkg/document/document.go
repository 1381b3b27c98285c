// Package document provides the typed document and extraction models of the
// Gini API together with the TaskManager, a high-level facade that uploads
// documents, polls them through processing and feeds corrections back.
package document

import (
	"encoding/json"
	"fmt"
	"time"
)

// State is the processing state of a document.
type State string

const (
	// StatePending means the document is still being processed.
	StatePending State = "PENDING"

	// StateCompleted means processing finished and extractions are
	// available.
	StateCompleted State = "COMPLETED"

	// StateError means processing failed; the document has no extractions.
	StateError State = "ERROR"
)

// SourceClassification describes how the uploaded document was produced.
type SourceClassification string

const (
	SourceNative       SourceClassification = "NATIVE"
	SourceScanned      SourceClassification = "SCANNED"
	SourceSandwich     SourceClassification = "SANDWICH"
	SourceText         SourceClassification = "TEXT"
	SourceComposite    SourceClassification = "COMPOSITE"
	SourceUnclassified SourceClassification = ""
)

// Links are the resource URLs attached to a document.
type Links struct {
	Document    string `json:"document"`
	Extractions string `json:"extractions"`
	Layout      string `json:"layout"`
	Processed   string `json:"processed"`
	Pages       string `json:"pages"`
}

// Document is a document known to the Gini API.
type Document struct {
	ID                   string
	Name                 string
	State                State
	PageCount            int
	CreationDate         time.Time
	SourceClassification SourceClassification
	Links                Links
}

// Terminal reports whether processing has finished, successfully or not.
func (d *Document) Terminal() bool {
	return d.State == StateCompleted || d.State == StateError
}

// documentPayload is the wire shape of a document resource. Creation dates
// come as epoch milliseconds.
type documentPayload struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Progress             string `json:"progress"`
	PageCount            int    `json:"pageCount"`
	CreationDate         int64  `json:"creationDate"`
	SourceClassification string `json:"sourceClassification"`
	Links                Links  `json:"_links"`
}

// ParseDocument parses a document resource from its API representation.
func ParseDocument(raw json.RawMessage) (*Document, error) {
	var payload documentPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if payload.ID == "" {
		return nil, fmt.Errorf("document response carried no ID")
	}

	return &Document{
		ID:                   payload.ID,
		Name:                 payload.Name,
		State:                State(payload.Progress),
		PageCount:            payload.PageCount,
		CreationDate:         time.UnixMilli(payload.CreationDate),
		SourceClassification: SourceClassification(payload.SourceClassification),
		Links:                payload.Links,
	}, nil
}
