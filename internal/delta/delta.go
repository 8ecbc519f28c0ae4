// Package delta builds changed-fields payloads for partial record updates.
package delta

import (
	"encoding/json"
	"fmt"

	"github.com/iudanet/gophsync/internal/models"
)

// Payload is a minimal update body: the record id plus the current values of
// its dirty fields.
type Payload map[string]json.RawMessage

// IsEmpty reports whether the payload carries nothing but the identifier.
// An empty payload means there is nothing to send and the record can be marked synced.
func (p Payload) IsEmpty() bool {
	for name := range p {
		if name != models.FieldID {
			return false
		}
	}
	return true
}

// Build computes the delta payload of rec. Field values are looked up in the
// record's full serialization; dirty names missing from it are skipped.
func Build(rec *models.Record) (Payload, error) {
	id, err := json.Marshal(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal id: %w", err)
	}

	payload := Payload{models.FieldID: id}
	if len(rec.DirtyFields) == 0 {
		return payload, nil
	}

	fields, err := rec.Fields()
	if err != nil {
		return nil, err
	}

	for _, name := range rec.DirtyFields.Names() {
		if name == models.FieldID {
			continue
		}
		if value, ok := fields[name]; ok {
			payload[name] = value
		}
	}

	return payload, nil
}
