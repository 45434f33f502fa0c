// Package service contains the business logic layer: validation of untrusted
// request parameters, the listing engine (filter/sort/paginate with metadata)
// and the sampling engine (random single and multiple selection).
//
// Services accept primitives and raw parameter strings, never HTTP types, and
// return domain errors from the apperror package; handlers translate those to
// status codes. The repository is injected as an interface so tests can swap
// in a mock.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"

	"github.com/sakif/script-archive/internal/apperror"
	"github.com/sakif/script-archive/internal/model"
	"github.com/sakif/script-archive/internal/repository"
)

const (
	DefaultPage        = 1
	DefaultPageSize    = 10
	DefaultSampleCount = 3
)

// User-facing messages. Handlers and tests reference these, so they live in
// one place.
const (
	MsgInvalidPagination = "Invalid pagination parameters. Page and limit must be positive integers."
	MsgInvalidCount      = "Invalid count parameter. Must be a positive integer."
	MsgNoScriptToChoose  = "No scripts available to choose from."
	MsgNoScriptsInDB     = "No scripts available in the database."
	MsgInvalidBatchIDs   = "Invalid input: 'ids' must be a non-empty array of strings."
)

// ListParams carries the raw, untrusted query parameters of a listing
// request. Empty string means "absent"; the engine applies defaults,
// validates page/limit, and silently normalizes sortBy/sortOrder.
type ListParams struct {
	Page      string
	Limit     string
	Search    string
	SortBy    string
	SortOrder string
}

// Pagination is the metadata block echoed with every listing page. SortBy
// and SortOrder hold the normalized values actually applied, so callers can
// observe the fallback.
type Pagination struct {
	TotalItems  int    `json:"totalItems"`
	CurrentPage int    `json:"currentPage"`
	TotalPages  int    `json:"totalPages"`
	PageSize    int    `json:"pageSize"`
	SortBy      string `json:"sortBy"`
	SortOrder   string `json:"sortOrder"`
}

// ScriptPage is one page of results plus its pagination metadata.
type ScriptPage struct {
	Data       []model.Script `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// ScriptService holds the business rules for the script archive.
type ScriptService struct {
	repo   repository.ScriptRepository
	logger *slog.Logger
}

func NewScriptService(repo repository.ScriptRepository, logger *slog.Logger) *ScriptService {
	return &ScriptService{
		repo:   repo,
		logger: logger,
	}
}

// Create validates and saves a new script. Title is optional and defaults to
// the "Untitled" sentinel; characters and lines must each have at least one
// entry, and every entry must be non-empty after trimming. Entries are
// stored trimmed.
func (s *ScriptService) Create(ctx context.Context, title string, characters []string, lines []model.Line) (*model.Script, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = model.UntitledTitle
	}

	characters, err := validCharacters(characters, true)
	if err != nil {
		return nil, err
	}
	lines, err = validLines(lines, true)
	if err != nil {
		return nil, err
	}

	script := &model.Script{
		Title:      title,
		Characters: characters,
		Lines:      lines,
	}

	if err := s.repo.Create(ctx, script); err != nil {
		s.logger.Error("failed to create script",
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating script: %w", err)
	}

	s.logger.Info("script created",
		slog.String("id", script.ID),
		slog.String("title", script.Title),
	)

	return script, nil
}

// GetByID retrieves a script by its id.
func (s *ScriptService) GetByID(ctx context.Context, id string) (*model.Script, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "script ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

// GetBatch returns the subset of the requested ids that exist, in request
// order. Missing ids are skipped, never an error.
func (s *ScriptService) GetBatch(ctx context.Context, ids []string) ([]model.Script, error) {
	if len(ids) == 0 {
		return nil, apperror.ValidationFailed("ids", MsgInvalidBatchIDs)
	}
	scripts, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("failed to batch-fetch scripts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("fetching scripts batch: %w", err)
	}
	return scripts, nil
}

// List is the listing engine: it validates page/limit, normalizes
// sortBy/sortOrder against the allow-lists, and returns one page of matches
// with pagination metadata computed from the total count.
//
// page and limit must parse to integers >= 1 when present; anything else is
// a validation failure before any query is issued. sortBy/sortOrder never
// fail: unknown values fall back to createdAt/desc, and the normalized pair
// is echoed in the metadata.
func (s *ScriptService) List(ctx context.Context, params ListParams) (*ScriptPage, error) {
	page, okPage := parsePositive(params.Page, DefaultPage)
	limit, okLimit := parsePositive(params.Limit, DefaultPageSize)
	if !okPage || !okLimit {
		return nil, apperror.ValidationFailed("pagination", MsgInvalidPagination)
	}

	sortBy := repository.SortByCreatedAt
	if params.SortBy == repository.SortByTitle {
		sortBy = repository.SortByTitle
	}
	sortOrder := repository.SortDesc
	if params.SortOrder == repository.SortAsc {
		sortOrder = repository.SortAsc
	}

	result, err := s.repo.List(ctx, repository.ListOptions{
		Search:    params.Search,
		SortBy:    sortBy,
		SortOrder: sortOrder,
		Limit:     limit,
		Offset:    (page - 1) * limit,
	})
	if err != nil {
		s.logger.Error("failed to list scripts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing scripts: %w", err)
	}

	totalPages := 0
	if result.Total > 0 {
		totalPages = (result.Total + limit - 1) / limit
	}

	return &ScriptPage{
		Data: result.Scripts,
		Pagination: Pagination{
			TotalItems:  result.Total,
			CurrentPage: page,
			TotalPages:  totalPages,
			PageSize:    limit,
			SortBy:      sortBy,
			SortOrder:   sortOrder,
		},
	}, nil
}

// Random is the single-pick half of the sampling engine: count the
// population, draw a uniform offset, fetch the row at that offset. A row
// that vanished between the count and the fetch (concurrent delete) is a
// reported anomaly, not a silent empty result.
func (s *ScriptService) Random(ctx context.Context) (*model.Script, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Error("failed to count scripts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("counting scripts: %w", err)
	}
	if total == 0 {
		return nil, apperror.NotFound(MsgNoScriptToChoose)
	}

	offset := rand.Intn(total)
	script, err := s.repo.GetByOffset(ctx, offset)
	if err != nil {
		s.logger.Error("failed to fetch random script",
			slog.Int("offset", offset),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("fetching random script: %w", err)
	}
	if script == nil {
		s.logger.Error("random pick missed despite non-zero count",
			slog.Int("offset", offset),
			slog.Int("total", total),
		)
		return nil, apperror.Internal("Failed to retrieve a random script.")
	}

	return script, nil
}

// RandomMany is the multi-pick half of the sampling engine.
//
// rawCount is the untrusted count parameter: absent defaults to 3, zero
// short-circuits to an empty result with no store access, and anything
// non-integer or negative fails validation. The sample size is clamped to
// the total population (not the exclusion-filtered population), so the
// result may legitimately be shorter than requested — or empty — once
// excludeIDs are filtered out; that is success, not an error. An empty
// population is the distinct "no scripts in the database" outcome.
func (s *ScriptService) RandomMany(ctx context.Context, rawCount string, excludeIDs []string) ([]model.Script, error) {
	count := DefaultSampleCount
	if rawCount != "" {
		n, err := strconv.Atoi(rawCount)
		if err != nil || n < 0 {
			return nil, apperror.ValidationFailed("count", MsgInvalidCount)
		}
		count = n
	}
	if count == 0 {
		return []model.Script{}, nil
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Error("failed to count scripts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("counting scripts: %w", err)
	}
	if total == 0 {
		return nil, apperror.EmptyCollection(MsgNoScriptsInDB)
	}
	if count > total {
		count = total
	}

	scripts, err := s.repo.RandomSample(ctx, count, excludeIDs)
	if err != nil {
		s.logger.Error("failed to sample scripts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("sampling scripts: %w", err)
	}
	return scripts, nil
}

// ScriptUpdate is a partial update: nil means "leave unchanged". Unlike
// creation, characters and lines may be set to any length, including empty,
// but present entries must still be non-empty.
type ScriptUpdate struct {
	Title      *string
	Characters *[]string
	Lines      *[]model.Line
}

// Update applies a partial update with the fetch-then-update strategy: the
// existing row confirms the id, the changed fields are applied on top, and
// the whole row is written back. At least one field must be present.
func (s *ScriptService) Update(ctx context.Context, id string, update ScriptUpdate) (*model.Script, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "script ID is required")
	}
	if update.Title == nil && update.Characters == nil && update.Lines == nil {
		return nil, apperror.ValidationFailed("body",
			"at least one of 'title', 'characters' or 'lines' must be provided")
	}

	script, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		script.Title = strings.TrimSpace(*update.Title)
	}
	if update.Characters != nil {
		characters, err := validCharacters(*update.Characters, false)
		if err != nil {
			return nil, err
		}
		script.Characters = characters
	}
	if update.Lines != nil {
		lines, err := validLines(*update.Lines, false)
		if err != nil {
			return nil, err
		}
		script.Lines = lines
	}

	if err := s.repo.Update(ctx, script); err != nil {
		s.logger.Error("failed to update script",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating script: %w", err)
	}

	s.logger.Info("script updated", slog.String("id", script.ID))
	return script, nil
}

// Delete removes a script by its id.
func (s *ScriptService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "script ID is required")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("script deleted", slog.String("id", id))
	return nil
}

// parsePositive parses an optional positive-integer parameter. Empty means
// absent and yields the default; anything that is not an integer >= 1 fails.
func parsePositive(raw string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// validCharacters trims every entry and rejects blank ones. requireSome
// additionally rejects an empty list (creation); updates may clear the list.
func validCharacters(characters []string, requireSome bool) ([]string, error) {
	if requireSome && len(characters) == 0 {
		return nil, apperror.ValidationFailed("characters", "at least one character is required")
	}
	trimmed := make([]string, 0, len(characters))
	for _, c := range characters {
		c = strings.TrimSpace(c)
		if c == "" {
			return nil, apperror.ValidationFailed("characters", "character names must be non-empty strings")
		}
		trimmed = append(trimmed, c)
	}
	return trimmed, nil
}

// validLines mirrors validCharacters for dialogue lines: both the character
// and the dialogue of every entry must be non-empty after trimming.
func validLines(lines []model.Line, requireSome bool) ([]model.Line, error) {
	if requireSome && len(lines) == 0 {
		return nil, apperror.ValidationFailed("lines", "at least one line is required")
	}
	trimmed := make([]model.Line, 0, len(lines))
	for _, l := range lines {
		l.Character = strings.TrimSpace(l.Character)
		l.Dialogue = strings.TrimSpace(l.Dialogue)
		if l.Character == "" || l.Dialogue == "" {
			return nil, apperror.ValidationFailed("lines",
				"each line must have a non-empty character and dialogue")
		}
		trimmed = append(trimmed, l)
	}
	return trimmed, nil
}
