package sqlite

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/sakif/script-archive/internal/apperror"
	"github.com/sakif/script-archive/internal/model"
	"github.com/sakif/script-archive/internal/repository"
)

// newTestDB opens a fresh in-memory database per test.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestScript inserts a script with a default cast and one line.
func createTestScript(t *testing.T, db *DB, title string) *model.Script {
	t.Helper()
	return createTestScriptFull(t, db, title,
		[]string{"NARRATOR"},
		[]model.Line{{Character: "NARRATOR", Dialogue: "Once upon a time."}},
	)
}

func createTestScriptFull(t *testing.T, db *DB, title string, characters []string, lines []model.Line) *model.Script {
	t.Helper()
	script := &model.Script{Title: title, Characters: characters, Lines: lines}
	if err := db.Create(context.Background(), script); err != nil {
		t.Fatalf("failed to create test script: %v", err)
	}
	return script
}

func TestCreate(t *testing.T) {
	db := newTestDB(t)

	script := &model.Script{
		Title:      "Opening Scene",
		Characters: []string{"ALICE", "BOB"},
		Lines: []model.Line{
			{Character: "ALICE", Dialogue: "Where were you last night?"},
			{Character: "BOB", Dialogue: "Nowhere special."},
		},
	}

	if err := db.Create(context.Background(), script); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if script.ID == "" {
		t.Error("Create() did not set script.ID")
	}
	if script.CreatedAt.IsZero() {
		t.Error("Create() did not set script.CreatedAt")
	}
}

func TestCreate_RoundTrip(t *testing.T) {
	db := newTestDB(t)

	original := createTestScriptFull(t, db, "Round Trip",
		[]string{"ALICE", "BOB"},
		[]model.Line{
			{Character: "ALICE", Dialogue: "First line."},
			{Character: "BOB", Dialogue: "Second line."},
		},
	)

	found, err := db.GetByID(context.Background(), original.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if found.Title != original.Title {
		t.Errorf("Title = %q, want %q", found.Title, original.Title)
	}
	if !reflect.DeepEqual(found.Characters, original.Characters) {
		t.Errorf("Characters = %v, want %v", found.Characters, original.Characters)
	}
	if !reflect.DeepEqual(found.Lines, original.Lines) {
		t.Errorf("Lines = %v, want %v", found.Lines, original.Lines)
	}
	if !found.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", found.CreatedAt, original.CreatedAt)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestGetByIDs(t *testing.T) {
	db := newTestDB(t)

	first := createTestScript(t, db, "First")
	second := createTestScript(t, db, "Second")
	createTestScript(t, db, "Third")

	// Missing ids are skipped; found scripts come back in request order.
	scripts, err := db.GetByIDs(context.Background(), []string{second.ID, "nonexistent-id", first.ID})
	if err != nil {
		t.Fatalf("GetByIDs() error = %v", err)
	}

	if len(scripts) != 2 {
		t.Fatalf("GetByIDs() returned %d scripts, want 2", len(scripts))
	}
	if scripts[0].ID != second.ID || scripts[1].ID != first.ID {
		t.Errorf("GetByIDs() order = [%s %s], want [%s %s]",
			scripts[0].ID, scripts[1].ID, second.ID, first.ID)
	}
}

func TestGetByIDs_Empty(t *testing.T) {
	db := newTestDB(t)

	scripts, err := db.GetByIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetByIDs() error = %v", err)
	}
	if len(scripts) != 0 {
		t.Errorf("GetByIDs() returned %d scripts, want 0", len(scripts))
	}
}

func TestList_Empty(t *testing.T) {
	db := newTestDB(t)

	result, err := db.List(context.Background(), repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(result.Scripts) != 0 {
		t.Errorf("List() returned %d scripts, want 0", len(result.Scripts))
	}
	if result.Total != 0 {
		t.Errorf("Total = %d, want 0", result.Total)
	}
}

func TestList_PaginationAndTotal(t *testing.T) {
	db := newTestDB(t)

	for _, title := range []string{"Beta", "Alpha", "Gamma", "Delta", "Epsilon"} {
		createTestScript(t, db, title)
	}

	// Second page of 3: two rows left, total still counts all matches.
	result, err := db.List(context.Background(), repository.ListOptions{Limit: 3, Offset: 3})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(result.Scripts) != 2 {
		t.Errorf("List() returned %d scripts, want 2", len(result.Scripts))
	}
	if result.Total != 5 {
		t.Errorf("Total = %d, want 5", result.Total)
	}

	// Offset past the end: empty page, same total.
	result, err = db.List(context.Background(), repository.ListOptions{Limit: 3, Offset: 30})
	if err != nil {
		t.Fatalf("List() past end error = %v", err)
	}
	if len(result.Scripts) != 0 {
		t.Errorf("List() past end returned %d scripts, want 0", len(result.Scripts))
	}
	if result.Total != 5 {
		t.Errorf("Total past end = %d, want 5", result.Total)
	}
}

func TestList_SortByTitleAsc(t *testing.T) {
	db := newTestDB(t)

	for _, title := range []string{"Beta", "Alpha", "Gamma", "Delta", "Epsilon"} {
		createTestScript(t, db, title)
	}

	result, err := db.List(context.Background(), repository.ListOptions{
		SortBy:    repository.SortByTitle,
		SortOrder: repository.SortAsc,
		Limit:     10,
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []string{"Alpha", "Beta", "Delta", "Epsilon", "Gamma"}
	for i, title := range want {
		if result.Scripts[i].Title != title {
			t.Errorf("Scripts[%d].Title = %q, want %q", i, result.Scripts[i].Title, title)
		}
	}
}

func TestList_SortByTitleCaseInsensitive(t *testing.T) {
	db := newTestDB(t)

	createTestScript(t, db, "banana")
	createTestScript(t, db, "Apple")
	createTestScript(t, db, "CHERRY")

	result, err := db.List(context.Background(), repository.ListOptions{
		SortBy:    repository.SortByTitle,
		SortOrder: repository.SortAsc,
		Limit:     10,
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []string{"Apple", "banana", "CHERRY"}
	for i, title := range want {
		if result.Scripts[i].Title != title {
			t.Errorf("Scripts[%d].Title = %q, want %q", i, result.Scripts[i].Title, title)
		}
	}
}

func TestList_DefaultSortNewestFirst(t *testing.T) {
	db := newTestDB(t)

	createTestScript(t, db, "oldest")
	createTestScript(t, db, "middle")
	newest := createTestScript(t, db, "newest")

	result, err := db.List(context.Background(), repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if result.Scripts[0].ID != newest.ID {
		t.Errorf("Scripts[0].Title = %q, want %q", result.Scripts[0].Title, "newest")
	}
	if result.Scripts[2].Title != "oldest" {
		t.Errorf("Scripts[2].Title = %q, want %q", result.Scripts[2].Title, "oldest")
	}
}

func TestList_Search(t *testing.T) {
	db := newTestDB(t)

	createTestScriptFull(t, db, "The Heist",
		[]string{"VERA", "MARCUS"},
		[]model.Line{{Character: "VERA", Dialogue: "The vault opens at midnight."}},
	)
	createTestScriptFull(t, db, "Quiet Morning",
		[]string{"IRIS"},
		[]model.Line{{Character: "IRIS", Dialogue: "Coffee first, questions later."}},
	)

	tests := []struct {
		name       string
		search     string
		wantTitles []string
	}{
		{name: "matches title", search: "heist", wantTitles: []string{"The Heist"}},
		{name: "matches character name", search: "marcus", wantTitles: []string{"The Heist"}},
		{name: "matches dialogue", search: "midnight", wantTitles: []string{"The Heist"}},
		{name: "case-insensitive", search: "COFFEE", wantTitles: []string{"Quiet Morning"}},
		{name: "no match", search: "submarine", wantTitles: []string{}},
		{name: "empty search matches all", search: "", wantTitles: []string{"Quiet Morning", "The Heist"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := db.List(context.Background(), repository.ListOptions{
				Search: tt.search,
				Limit:  10,
			})
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(result.Scripts) != len(tt.wantTitles) {
				t.Fatalf("List(%q) returned %d scripts, want %d",
					tt.search, len(result.Scripts), len(tt.wantTitles))
			}
			if result.Total != len(tt.wantTitles) {
				t.Errorf("Total = %d, want %d", result.Total, len(tt.wantTitles))
			}
			for _, title := range tt.wantTitles {
				found := false
				for _, s := range result.Scripts {
					if s.Title == title {
						found = true
					}
				}
				if !found {
					t.Errorf("List(%q) missing title %q", tt.search, title)
				}
			}
		})
	}
}

func TestList_SearchDoesNotMatchLineCharacter(t *testing.T) {
	db := newTestDB(t)

	// "xavier" appears only as a line's character, not in the roster,
	// title, or dialogue. Search covers dialogue, not line speakers.
	createTestScriptFull(t, db, "Cameo",
		[]string{"HOST"},
		[]model.Line{{Character: "XAVIER", Dialogue: "Just passing through."}},
	)

	result, err := db.List(context.Background(), repository.ListOptions{Search: "xavier", Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(result.Scripts) != 0 {
		t.Errorf("List() returned %d scripts, want 0", len(result.Scripts))
	}
}

func TestList_SearchTreatsWildcardsAsLiterals(t *testing.T) {
	db := newTestDB(t)

	createTestScript(t, db, "abc")
	createTestScriptFull(t, db, "Sales Pitch",
		[]string{"REP"},
		[]model.Line{{Character: "REP", Dialogue: "We guarantee 100% satisfaction."}},
	)

	tests := []struct {
		name      string
		search    string
		wantTotal int
	}{
		{name: "underscore is not a single-char wildcard", search: "a_c", wantTotal: 0},
		{name: "percent is not a multi-char wildcard", search: "a%c", wantTotal: 0},
		{name: "literal percent still matches", search: "100%", wantTotal: 1},
		{name: "backslash does not break the match", search: `10\0`, wantTotal: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := db.List(context.Background(), repository.ListOptions{Search: tt.search, Limit: 10})
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if result.Total != tt.wantTotal {
				t.Errorf("List(%q) Total = %d, want %d", tt.search, result.Total, tt.wantTotal)
			}
		})
	}
}

func TestTimestampsSurviveEveryReadPath(t *testing.T) {
	db := newTestDB(t)

	created := createTestScript(t, db, "Clockwork")

	byID, err := db.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !byID.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("GetByID() CreatedAt = %v, want %v", byID.CreatedAt, created.CreatedAt)
	}

	listed, err := db.List(context.Background(), repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(listed.Scripts) != 1 {
		t.Fatalf("List() returned %d scripts, want 1", len(listed.Scripts))
	}
	if !listed.Scripts[0].CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("List() CreatedAt = %v, want %v", listed.Scripts[0].CreatedAt, created.CreatedAt)
	}

	byOffset, err := db.GetByOffset(context.Background(), 0)
	if err != nil {
		t.Fatalf("GetByOffset() error = %v", err)
	}
	if byOffset == nil || !byOffset.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("GetByOffset() CreatedAt mismatch: got %+v", byOffset)
	}

	sampled, err := db.RandomSample(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("RandomSample() error = %v", err)
	}
	if len(sampled) != 1 || !sampled[0].CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("RandomSample() CreatedAt mismatch: got %+v", sampled)
	}
}

func TestCount(t *testing.T) {
	db := newTestDB(t)

	n, err := db.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}

	createTestScript(t, db, "one")
	createTestScript(t, db, "two")

	n, err = db.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestGetByOffset(t *testing.T) {
	db := newTestDB(t)

	first := createTestScript(t, db, "first")
	createTestScript(t, db, "second")
	third := createTestScript(t, db, "third")

	got, err := db.GetByOffset(context.Background(), 0)
	if err != nil {
		t.Fatalf("GetByOffset(0) error = %v", err)
	}
	if got == nil || got.ID != first.ID {
		t.Errorf("GetByOffset(0) = %v, want id %s", got, first.ID)
	}

	got, err = db.GetByOffset(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetByOffset(2) error = %v", err)
	}
	if got == nil || got.ID != third.ID {
		t.Errorf("GetByOffset(2) = %v, want id %s", got, third.ID)
	}
}

func TestGetByOffset_PastEnd(t *testing.T) {
	db := newTestDB(t)
	createTestScript(t, db, "only one")

	got, err := db.GetByOffset(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetByOffset() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetByOffset() past end = %v, want nil", got)
	}
}

func TestRandomSample(t *testing.T) {
	db := newTestDB(t)

	for i := 0; i < 5; i++ {
		createTestScript(t, db, "sample")
	}

	scripts, err := db.RandomSample(context.Background(), 3, nil)
	if err != nil {
		t.Fatalf("RandomSample() error = %v", err)
	}
	if len(scripts) != 3 {
		t.Fatalf("RandomSample() returned %d scripts, want 3", len(scripts))
	}

	// No duplicates within one sample.
	seen := make(map[string]bool)
	for _, s := range scripts {
		if seen[s.ID] {
			t.Errorf("RandomSample() returned duplicate id %s", s.ID)
		}
		seen[s.ID] = true
	}
}

func TestRandomSample_Exclusion(t *testing.T) {
	db := newTestDB(t)

	keep := createTestScript(t, db, "keep")
	excluded := []string{
		createTestScript(t, db, "skip").ID,
		createTestScript(t, db, "skip").ID,
	}

	scripts, err := db.RandomSample(context.Background(), 3, excluded)
	if err != nil {
		t.Fatalf("RandomSample() error = %v", err)
	}
	if len(scripts) != 1 {
		t.Fatalf("RandomSample() returned %d scripts, want 1", len(scripts))
	}
	if scripts[0].ID != keep.ID {
		t.Errorf("RandomSample() returned %s, want %s", scripts[0].ID, keep.ID)
	}
}

func TestRandomSample_AllExcluded(t *testing.T) {
	db := newTestDB(t)

	ids := []string{
		createTestScript(t, db, "a").ID,
		createTestScript(t, db, "b").ID,
	}

	scripts, err := db.RandomSample(context.Background(), 5, ids)
	if err != nil {
		t.Fatalf("RandomSample() error = %v", err)
	}
	if len(scripts) != 0 {
		t.Errorf("RandomSample() returned %d scripts, want 0", len(scripts))
	}
}

func TestUpdate(t *testing.T) {
	db := newTestDB(t)
	original := createTestScript(t, db, "before")

	original.Title = "after"
	original.Characters = []string{"NEW VOICE"}
	original.Lines = []model.Line{{Character: "NEW VOICE", Dialogue: "Rewritten."}}

	if err := db.Update(context.Background(), original); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := db.GetByID(context.Background(), original.ID)
	if err != nil {
		t.Fatalf("GetByID() after update error = %v", err)
	}
	if found.Title != "after" {
		t.Errorf("Title = %q, want %q", found.Title, "after")
	}
	if !reflect.DeepEqual(found.Characters, []string{"NEW VOICE"}) {
		t.Errorf("Characters = %v, want [NEW VOICE]", found.Characters)
	}
	if !found.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("CreatedAt changed on update: %v != %v", found.CreatedAt, original.CreatedAt)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	script := &model.Script{
		ID:         "nonexistent",
		Title:      "ghost",
		Characters: []string{"NOBODY"},
		Lines:      []model.Line{{Character: "NOBODY", Dialogue: "..."}},
	}
	err := db.Update(context.Background(), script)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	script := createTestScript(t, db, "to delete")

	if err := db.Delete(context.Background(), script.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := db.GetByID(context.Background(), script.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete: error = %v, want ErrNotFound", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Delete(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}
