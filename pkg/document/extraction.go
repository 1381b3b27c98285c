package document

import (
	"encoding/json"
	"fmt"
)

// Box locates an extraction on a document page. Coordinates are in the
// page's own coordinate system as reported by the layout.
type Box struct {
	Page   int     `json:"page"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Candidate is an alternative value for an extraction.
type Candidate struct {
	Value  string `json:"value"`
	Entity string `json:"entity"`
	Box    *Box   `json:"box,omitempty"`
}

// Extraction is one piece of information recognized in a document, such as
// the amount to pay or the IBAN. Correcting its value or box marks it dirty;
// only dirty extractions are sent back as feedback.
type Extraction struct {
	Name       string
	Entity     string
	Candidates []Candidate

	value string
	box   *Box
	dirty bool
}

// Value returns the current value of the extraction.
func (e *Extraction) Value() string { return e.value }

// Box returns the current bounding box, or nil when the extraction has none.
func (e *Extraction) Box() *Box { return e.box }

// SetValue corrects the value and marks the extraction dirty.
func (e *Extraction) SetValue(value string) {
	if value == e.value {
		return
	}
	e.value = value
	e.dirty = true
}

// SetBox corrects the bounding box and marks the extraction dirty.
func (e *Extraction) SetBox(box *Box) {
	e.box = box
	e.dirty = true
}

// Dirty reports whether the extraction carries an unsubmitted correction.
func (e *Extraction) Dirty() bool { return e.dirty }

// markClean resets the dirty flag after feedback was accepted.
func (e *Extraction) markClean() { e.dirty = false }

// ExtractionSet holds a document's extractions keyed by name.
type ExtractionSet map[string]*Extraction

// Dirty returns the extractions carrying unsubmitted corrections.
func (s ExtractionSet) Dirty() []*Extraction {
	var dirty []*Extraction
	for _, e := range s {
		if e.Dirty() {
			dirty = append(dirty, e)
		}
	}
	return dirty
}

// extractionsPayload is the wire shape of an extractions resource. The
// candidates of an extraction are referenced by name into the shared
// candidates map.
type extractionsPayload struct {
	Extractions map[string]struct {
		Value      string `json:"value"`
		Entity     string `json:"entity"`
		Box        *Box   `json:"box"`
		Candidates string `json:"candidates"`
	} `json:"extractions"`
	Candidates map[string][]Candidate `json:"candidates"`
}

// ParseExtractions parses an extractions resource from its API
// representation.
func ParseExtractions(raw json.RawMessage) (ExtractionSet, error) {
	var payload extractionsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode extractions: %w", err)
	}

	set := make(ExtractionSet, len(payload.Extractions))
	for name, e := range payload.Extractions {
		set[name] = &Extraction{
			Name:       name,
			Entity:     e.Entity,
			Candidates: payload.Candidates[e.Candidates],
			value:      e.Value,
			box:        e.Box,
		}
	}
	return set, nil
}
