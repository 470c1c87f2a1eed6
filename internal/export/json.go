// Package export serializes a board document for portability: JSON for
// lossless round-trips, PDF for handing a board to someone outside the tool.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"syncboard/internal/board"
)

// WriteJSON writes the document with points left in normalized form, so an
// import on any canvas size reproduces the same board.
func WriteJSON(w io.Writer, doc board.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// ReadJSON parses a document and validates every stroke; one bad stroke
// rejects the whole file rather than importing a half-board.
func ReadJSON(r io.Reader) (board.Document, error) {
	var doc board.Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return board.Document{}, fmt.Errorf("read document: %w", err)
	}
	for _, s := range doc.Strokes {
		if err := s.Validate(); err != nil {
			return board.Document{}, fmt.Errorf("invalid document: %w", err)
		}
	}
	return doc, nil
}
