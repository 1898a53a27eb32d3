package model

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Category classifies what kind of journal record a trash item holds.
type Category string

const (
	CategoryOperation Category = "operation"
	CategorySession   Category = "session"
	CategoryConfig    Category = "config"
	CategoryTag       Category = "tag"
	CategoryNote      Category = "note"
	CategoryAnalysis  Category = "analysis"
)

func Categories() []Category {
	return []Category{
		CategoryOperation,
		CategorySession,
		CategoryConfig,
		CategoryTag,
		CategoryNote,
		CategoryAnalysis,
	}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryOperation, CategorySession, CategoryConfig, CategoryTag, CategoryNote, CategoryAnalysis:
		return true
	}
	return false
}

// ComplexityLevel determines how much derived state a restore must recompute.
type ComplexityLevel string

const (
	// ComplexitySimple restores by direct reinsertion (tags, notes).
	ComplexitySimple ComplexityLevel = "simple"
	// ComplexityMedium requires a capital replay (operations).
	ComplexityMedium ComplexityLevel = "medium"
	// ComplexityComplex requires full session reconstruction.
	ComplexityComplex ComplexityLevel = "complex"
)

func (l ComplexityLevel) Valid() bool {
	switch l {
	case ComplexitySimple, ComplexityMedium, ComplexityComplex:
		return true
	}
	return false
}

// DeletionContext captures where and how a record must be reinserted on restore.
// Only the fields relevant to the item's category are set.
type DeletionContext struct {
	// OriginalIndex is the operation's position inside its host array at
	// deletion time. Nil for non-operation items.
	OriginalIndex *int `json:"original_index,omitempty"`

	// StartCapital is the host session's starting capital at deletion time.
	StartCapital *decimal.Decimal `json:"start_capital,omitempty"`

	// SessionActive reports whether the operation belonged to the currently
	// active session. When false, ArchivedSessionID locates the host.
	SessionActive bool `json:"session_active,omitempty"`

	// ArchivedSessionID is the id needed to fetch an archived host session.
	ArchivedSessionID string `json:"archived_session_id,omitempty"`

	// WasActive reports whether a trashed session was the active one.
	WasActive bool `json:"was_active,omitempty"`
}

type TrashMetadata struct {
	DeletedBy string `json:"deleted_by"`
	Reason    string `json:"reason"`
}

// TrashItem is a soft-deleted record held in the trash document until it is
// restored, permanently deleted, or expired by a sweep.
type TrashItem struct {
	ID              string           `json:"id"`
	OriginalID      string           `json:"original_id"`
	Category        Category         `json:"category"`
	ComplexityLevel ComplexityLevel  `json:"complexity_level"`
	Payload         json.RawMessage  `json:"payload"`
	Context         *DeletionContext `json:"context,omitempty"`
	DeletedAt       time.Time        `json:"deleted_at"`
	ExpirationDate  time.Time        `json:"expiration_date"`
	Metadata        TrashMetadata    `json:"metadata"`
}

// Expired reports whether the item's retention window has passed.
func (it TrashItem) Expired(now time.Time) bool {
	return !it.ExpirationDate.After(now)
}

// DaysUntilExpiration rounds up, matching the "expires in N days" UI copy.
func (it TrashItem) DaysUntilExpiration(now time.Time) int {
	remaining := it.ExpirationDate.Sub(now)
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// TrashDocument is the full "trash" JSON document as persisted in the backend.
// It is always read and written whole.
type TrashDocument struct {
	Items    []TrashItem           `json:"items"`
	Metadata TrashDocumentMetadata `json:"metadata"`
}

type TrashDocumentMetadata struct {
	CreatedAt        time.Time  `json:"created_at"`
	LastUpdate       *time.Time `json:"last_update,omitempty"`
	LastCleanup      *time.Time `json:"last_cleanup,omitempty"`
	LastEmptied      *time.Time `json:"last_emptied,omitempty"`
	TotalEverDeleted int        `json:"total_ever_deleted"`
	TotalRestored    int        `json:"total_restored"`
	TotalAutoDeleted int        `json:"total_auto_deleted"`
}

// DeletedItem is the input to a move-to-trash call.
type DeletedItem struct {
	OriginalID      string
	Category        Category
	ComplexityLevel ComplexityLevel
	Payload         json.RawMessage
	Context         *DeletionContext
	DeletedBy       string
	Reason          string
}

// RestoredItem is what the store hands to the reconciler after removing an
// item from the trash document.
type RestoredItem struct {
	TrashID         string           `json:"trash_id"`
	OriginalID      string           `json:"original_id"`
	Category        Category         `json:"category"`
	ComplexityLevel ComplexityLevel  `json:"complexity_level"`
	Payload         json.RawMessage  `json:"payload"`
	Context         *DeletionContext `json:"context,omitempty"`
}

// SortOption orders a trash listing.
type SortOption string

const (
	SortDateDesc   SortOption = "date-desc"
	SortDateAsc    SortOption = "date-asc"
	SortCategory   SortOption = "category"
	SortExpiration SortOption = "expiration"
)

func (s SortOption) Valid() bool {
	switch s {
	case SortDateDesc, SortDateAsc, SortCategory, SortExpiration:
		return true
	}
	return false
}

// TrashFilters narrows and orders a trash listing. Zero values mean "no filter".
type TrashFilters struct {
	Category Category
	DateFrom *time.Time
	DateTo   *time.Time
	Sort     SortOption
}

// Apply filters and orders items, returning a new slice.
func (f TrashFilters) Apply(items []TrashItem) []TrashItem {
	out := make([]TrashItem, 0, len(items))
	for _, it := range items {
		if f.Category != "" && it.Category != f.Category {
			continue
		}
		if f.DateFrom != nil && it.DeletedAt.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && it.DeletedAt.After(*f.DateTo) {
			continue
		}
		out = append(out, it)
	}

	switch f.Sort {
	case SortDateAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].DeletedAt.Before(out[j].DeletedAt) })
	case SortCategory:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	case SortExpiration:
		sort.SliceStable(out, func(i, j int) bool { return out[i].ExpirationDate.Before(out[j].ExpirationDate) })
	default:
		// date-desc is the default ordering.
		sort.SliceStable(out, func(i, j int) bool { return out[i].DeletedAt.After(out[j].DeletedAt) })
	}

	return out
}

// TrashStats is the snapshot attached to trash-changed events and returned by
// the stats endpoint.
type TrashStats struct {
	TotalItems       int              `json:"total_items"`
	ItemsByCategory  map[Category]int `json:"items_by_category"`
	ExpiringItems    int              `json:"expiring_items"`
	OldestItem       *time.Time       `json:"oldest_item,omitempty"`
	NewestItem       *time.Time       `json:"newest_item,omitempty"`
	TotalEverDeleted int              `json:"total_ever_deleted"`
	TotalRestored    int              `json:"total_restored"`
	LastCleanup      *time.Time       `json:"last_cleanup,omitempty"`
}

// CleanupConfig controls the automatic sweep scheduler.
type CleanupConfig struct {
	Enabled          bool `json:"enabled"`
	IntervalHours    int  `json:"interval_hours"`
	MaxRetentionDays int  `json:"max_retention_days"`
	NotifyExpiring   bool `json:"notify_expiring"`
	NotifyCleanup    bool `json:"notify_cleanup"`
}

func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		Enabled:          true,
		IntervalHours:    6,
		MaxRetentionDays: 30,
		NotifyExpiring:   true,
		NotifyCleanup:    true,
	}
}

// CleanupResult summarizes one sweep.
type CleanupResult struct {
	Timestamp           time.Time `json:"timestamp"`
	DeletedCount        int       `json:"deleted_count"`
	ExpiringSoonCount   int       `json:"expiring_soon_count"`
	TotalItemsRemaining int       `json:"total_items_remaining"`
}

// CleanupStats reports scheduler health for diagnostics.
type CleanupStats struct {
	TotalAutoDeleted  int        `json:"total_auto_deleted"`
	LastCleanup       *time.Time `json:"last_cleanup,omitempty"`
	ItemsExpiringSoon int        `json:"items_expiring_soon"`
	ItemsExpiredNow   int        `json:"items_expired_now"`
	TotalCleanupLogs  int        `json:"total_cleanup_logs"`
	SchedulerRunning  bool       `json:"scheduler_running"`
}
