package model

import (
	"encoding/json"
	"time"
)

// BackupSnapshot is a pre-deletion copy of a single item. Forensic only: no
// automatic recovery path reads these.
type BackupSnapshot struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Category  Category        `json:"category"`
	Payload   json.RawMessage `json:"payload"`
}

// EmergencySnapshot is an opportunistic capture of the whole relevant
// application state (active session, archived ids, trash stats), taken on
// shutdown and on a periodic timer.
type EmergencySnapshot struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Trigger   string          `json:"trigger"` // "shutdown" or "periodic"
	State     json.RawMessage `json:"state"`
}

// BackupDocument is the full "backup" JSON document. The two snapshot lists
// are independent ring buffers with different capacities.
type BackupDocument struct {
	ItemSnapshots      []BackupSnapshot       `json:"item_snapshots"`
	EmergencySnapshots []EmergencySnapshot    `json:"emergency_snapshots"`
	Metadata           BackupDocumentMetadata `json:"metadata"`
}

type BackupDocumentMetadata struct {
	CreatedAt    time.Time  `json:"created_at"`
	LastBackup   *time.Time `json:"last_backup,omitempty"`
	TotalBackups int        `json:"total_backups"`
}
