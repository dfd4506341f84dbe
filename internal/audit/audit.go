// Package audit records decision entries for state-mutating actions:
// module commits and deal stage flips.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/dealsuite/modtrack/internal/models"
	"github.com/dealsuite/modtrack/internal/store"
)

// Writer persists decision records through the store.
type Writer struct {
	store *store.Store
}

// NewWriter creates a new audit writer.
func NewWriter(s *store.Store) *Writer {
	return &Writer{store: s}
}

// Record writes a decision record for a state-mutating action.
func (w *Writer) Record(action string, inputs interface{}, outcome, dealID, details string) (*models.DecisionRecord, error) {
	return w.store.WriteRecord(action, hashInputs(inputs), outcome, dealID, details)
}

// hashInputs creates a SHA256 hash of the inputs for reproducibility.
func hashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
