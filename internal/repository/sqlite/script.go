package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/script-archive/internal/apperror"
	"github.com/sakif/script-archive/internal/model"
	"github.com/sakif/script-archive/internal/repository"
)

// Compile-time interface guard.
var _ repository.ScriptRepository = (*DB)(nil)

const scriptColumns = "id, title, characters, lines, created_at, updated_at"

// timeLayout is the storage format for timestamps: UTC, fixed width, zero
// padded nanoseconds. Lexicographic order equals chronological order, which
// the created_at ORDER BY and OFFSET-based random pick rely on.
const timeLayout = "2006-01-02 15:04:05.000000000"

// scanScript reads one row into a model.Script, decoding the JSON columns.
// Works for both *sql.Row and *sql.Rows.
func scanScript(row interface{ Scan(dest ...any) error }) (*model.Script, error) {
	var (
		s          model.Script
		title      sql.NullString
		characters []byte
		lines      []byte
		createdAt  string
		updatedAt  string
	)
	if err := row.Scan(&s.ID, &title, &characters, &lines, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	s.Title = title.String
	var err error
	if s.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("decoding created_at for %s: %w", s.ID, err)
	}
	if s.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("decoding updated_at for %s: %w", s.ID, err)
	}
	if err := json.Unmarshal(characters, &s.Characters); err != nil {
		return nil, fmt.Errorf("decoding characters for %s: %w", s.ID, err)
	}
	if err := json.Unmarshal(lines, &s.Lines); err != nil {
		return nil, fmt.Errorf("decoding lines for %s: %w", s.ID, err)
	}
	return &s, nil
}

// encodeScript marshals the JSON columns for insert/update.
func encodeScript(s *model.Script) (characters, lines []byte, err error) {
	characters, err = json.Marshal(s.Characters)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding characters: %w", err)
	}
	lines, err = json.Marshal(s.Lines)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding lines: %w", err)
	}
	return characters, lines, nil
}

// Create inserts a new script, assigning the id and timestamps in place.
// xid ids are time-ordered, which keeps id a usable stable tiebreaker.
func (db *DB) Create(ctx context.Context, script *model.Script) error {
	script.ID = xid.New().String()
	now := time.Now().UTC()
	script.CreatedAt = now
	script.UpdatedAt = now

	characters, lines, err := encodeScript(script)
	if err != nil {
		return fmt.Errorf("sqlite: creating script: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO scripts (id, title, characters, lines, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		script.ID,
		script.Title,
		characters,
		lines,
		script.CreatedAt.Format(timeLayout),
		script.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating script: %w", err)
	}

	return nil
}

// GetByID retrieves a single script, translating sql.ErrNoRows into the
// domain NotFound error.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Script, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+scriptColumns+` FROM scripts WHERE id = ?`, id)

	script, err := scanScript(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundID("script", id)
		}
		return nil, fmt.Errorf("sqlite: getting script %s: %w", id, err)
	}
	return script, nil
}

// GetByIDs returns the scripts whose ids exist, in the order the ids were
// given. Missing ids are skipped, duplicates collapse to one row.
func (db *DB) GetByIDs(ctx context.Context, ids []string) ([]model.Script, error) {
	if len(ids) == 0 {
		return []model.Script{}, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+scriptColumns+` FROM scripts WHERE id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting scripts by ids: %w", err)
	}
	defer rows.Close()

	found := make(map[string]model.Script, len(ids))
	for rows.Next() {
		s, err := scanScript(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning script row: %w", err)
		}
		found[s.ID] = *s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating scripts: %w", err)
	}

	scripts := make([]model.Script, 0, len(found))
	for _, id := range ids {
		if s, ok := found[id]; ok {
			scripts = append(scripts, s)
			delete(found, id)
		}
	}
	return scripts, nil
}

// List runs the page query and the count query against the same filter
// inside one transaction, so the total stays consistent with the page under
// concurrent writes.
//
// Safety contract: every user-supplied value (the search string, limit,
// offset, exclusion ids elsewhere) is bound with placeholders. The ORDER BY
// clause is assembled only from the fixed literals below — opts.SortBy and
// opts.SortOrder select between them and are never interpolated themselves.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult, error) {
	where, args := searchFilter(opts.Search)

	orderCol := "created_at"
	if opts.SortBy == repository.SortByTitle {
		orderCol = "title COLLATE NOCASE"
	}
	direction := "DESC"
	if opts.SortOrder == repository.SortAsc {
		direction = "ASC"
	}
	// id ASC is the documented stable tiebreaker for equal sort keys.
	orderBy := fmt.Sprintf("ORDER BY %s %s, id ASC", orderCol, direction)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning list transaction: %w", err)
	}
	defer tx.Rollback()

	pageArgs := append(append([]any{}, args...), opts.Limit, opts.Offset)
	rows, err := tx.QueryContext(ctx,
		`SELECT `+scriptColumns+` FROM scripts `+where+` `+orderBy+` LIMIT ? OFFSET ?`,
		pageArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing scripts: %w", err)
	}
	defer rows.Close()

	scripts := make([]model.Script, 0, opts.Limit)
	for rows.Next() {
		s, err := scanScript(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning script row: %w", err)
		}
		scripts = append(scripts, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating scripts: %w", err)
	}

	var total int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scripts `+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting scripts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing list transaction: %w", err)
	}

	return &repository.ListResult{Scripts: scripts, Total: total}, nil
}

// Count returns the total number of scripts.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM scripts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting scripts: %w", err)
	}
	return n, nil
}

// GetByOffset returns the row at the given offset of the collection in
// creation order, or nil when the offset is past the end. The caller decides
// whether a missing row is an anomaly.
func (db *DB) GetByOffset(ctx context.Context, offset int) (*model.Script, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+scriptColumns+` FROM scripts ORDER BY created_at ASC, id ASC LIMIT 1 OFFSET ?`,
		offset,
	)

	script, err := scanScript(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: getting script at offset %d: %w", offset, err)
	}
	return script, nil
}

// RandomSample returns up to limit rows drawn uniformly at random via
// SQLite's ORDER BY RANDOM(), excluding the given ids. The exclusion ids
// are bound, never concatenated.
func (db *DB) RandomSample(ctx context.Context, limit int, excludeIDs []string) ([]model.Script, error) {
	query := `SELECT ` + scriptColumns + ` FROM scripts`
	args := make([]any, 0, len(excludeIDs)+1)
	if len(excludeIDs) > 0 {
		query += ` WHERE id NOT IN (` + placeholders(len(excludeIDs)) + `)`
		for _, id := range excludeIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY RANDOM() LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: sampling scripts: %w", err)
	}
	defer rows.Close()

	scripts := make([]model.Script, 0, limit)
	for rows.Next() {
		s, err := scanScript(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning script row: %w", err)
		}
		scripts = append(scripts, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating scripts: %w", err)
	}
	return scripts, nil
}

// Update rewrites the mutable columns, using RowsAffected to detect a
// missing row. id and created_at are immutable.
func (db *DB) Update(ctx context.Context, script *model.Script) error {
	script.UpdatedAt = time.Now().UTC()

	characters, lines, err := encodeScript(script)
	if err != nil {
		return fmt.Errorf("sqlite: updating script %s: %w", script.ID, err)
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE scripts SET title = ?, characters = ?, lines = ?, updated_at = ? WHERE id = ?`,
		script.Title,
		characters,
		lines,
		script.UpdatedAt.Format(timeLayout),
		script.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating script %s: %w", script.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFoundID("script", script.ID)
	}

	return nil
}

// Delete removes a script by id. Same RowsAffected pattern as Update.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM scripts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting script %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFoundID("script", id)
	}

	return nil
}

// likeEscaper neutralizes LIKE metacharacters in user-supplied search terms
// so "100%" matches the literal text rather than acting as a wildcard.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// searchFilter builds the optional WHERE clause for free-text search: a
// case-insensitive substring match on the title, any character name, or any
// line's dialogue. json_each walks the JSON arrays store-side so the match
// sees values, not JSON syntax. SQLite's LIKE is case-insensitive for ASCII.
func searchFilter(search string) (string, []any) {
	if search == "" {
		return "", nil
	}
	where := `WHERE title LIKE '%' || ? || '%' ESCAPE '\'
		OR EXISTS (SELECT 1 FROM json_each(scripts.characters) WHERE json_each.value LIKE '%' || ? || '%' ESCAPE '\')
		OR EXISTS (SELECT 1 FROM json_each(scripts.lines) WHERE json_extract(json_each.value, '$.dialogue') LIKE '%' || ? || '%' ESCAPE '\')`
	escaped := likeEscaper.Replace(search)
	return where, []any{escaped, escaped, escaped}
}

// placeholders returns "?, ?, ..." with n entries.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
