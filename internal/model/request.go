package model

import "encoding/json"

// MoveToTrashRequest is the wire form of a soft-delete call.
type MoveToTrashRequest struct {
	OriginalID      string           `json:"original_id"`
	Category        Category         `json:"category"`
	ComplexityLevel ComplexityLevel  `json:"complexity_level"`
	Payload         json.RawMessage  `json:"payload"`
	Context         *DeletionContext `json:"context,omitempty"`
	Reason          string           `json:"reason,omitempty"`
}

// RestoreRequest optionally carries a pre-answered conflict resolution so a
// stateless client can resolve an active-session conflict in one round trip.
type RestoreRequest struct {
	ConflictResolution ConflictResolution `json:"conflict_resolution,omitempty"`
}

type MoveToTrashResponse struct {
	TrashID        string `json:"trash_id"`
	ExpirationDate string `json:"expiration_date"`
}

type EmptyTrashResponse struct {
	RemovedCount int `json:"removed_count"`
}

type RestoreResponse struct {
	Restored RestoredItem `json:"restored"`
}
