package journal

import "encoding/json"

// ============================================================================
// Journal Type Definitions
// Responsibility: Define the records kept in the mutation journal
// ============================================================================

// Entry kinds written by the dashboards
const (
	KindJobCreate = "job.create"
	KindJobUpdate = "job.update"
	KindJobDelete = "job.delete"
	KindApply     = "apply"
	KindReview    = "review"
)

// Entry is one successful mutation, stored as a JSON line
type Entry struct {
	Seq        uint64          `json:"seq"`                  // Sequence number (monotonically increasing per file)
	ID         string          `json:"id"`                   // Entry uuid
	Kind       string          `json:"kind"`                 // job.create, job.update, job.delete, apply, review
	ResourceID int64           `json:"resource_id"`          // Server id of the affected record
	RequestID  string          `json:"request_id,omitempty"` // X-Request-ID of the call, when known
	Timestamp  int64           `json:"timestamp"`            // Unix millisecond timestamp
	Payload    json.RawMessage `json:"payload,omitempty"`    // Server representation after the mutation
	Checksum   uint32          `json:"checksum"`             // CRC32 checksum
}

// EntryHandler processes entries during Replay.
// Returning an error aborts the replay.
type EntryHandler func(entry Entry) error
