// Package repository declares the storage interfaces the service layer
// depends on. Concrete implementations live in subpackages (sqlite).
package repository

import (
	"context"

	"github.com/sakif/script-archive/internal/model"
)

// Sort columns accepted by List. Anything else must be normalized to
// SortByCreatedAt before reaching the repository — the values below are the
// only strings ever placed in an ORDER BY clause.
const (
	SortByTitle     = "title"
	SortByCreatedAt = "createdAt"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListOptions carries a fully-normalized listing request: Search may be any
// user string (it is always bound, never interpolated), but SortBy and
// SortOrder must be one of the constants above, and Limit/Offset must be
// non-negative.
type ListOptions struct {
	Search    string
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// ListResult is one page of scripts plus the total match count for the same
// filter, read within a single transaction.
type ListResult struct {
	Scripts []model.Script
	Total   int
}

type ScriptRepository interface {
	Create(ctx context.Context, script *model.Script) error
	GetByID(ctx context.Context, id string) (*model.Script, error)
	// GetByIDs returns the subset of scripts whose ids exist; missing ids
	// are silently skipped.
	GetByIDs(ctx context.Context, ids []string) ([]model.Script, error)
	List(ctx context.Context, opts ListOptions) (*ListResult, error)
	Count(ctx context.Context) (int, error)
	// GetByOffset returns the row at the given offset of the full
	// collection in creation order, or nil when the offset is past the end.
	GetByOffset(ctx context.Context, offset int) (*model.Script, error)
	// RandomSample returns up to limit rows drawn uniformly at random,
	// excluding the given ids.
	RandomSample(ctx context.Context, limit int, excludeIDs []string) ([]model.Script, error)
	Update(ctx context.Context, script *model.Script) error
	Delete(ctx context.Context, id string) error
}
