package store

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/stackai/search-relay/models"
	"github.com/stackai/search-relay/tools/websearch/mock"
)

var errTest = errors.New("boom")

// jsonArrayLen matches a jsonb argument holding an array of exactly n
// entries.
type jsonArrayLen int

func (n jsonArrayLen) Match(v driver.Value) bool {
	b, ok := v.([]byte)
	if !ok {
		return false
	}
	var arr []interface{}
	if err := json.Unmarshal(b, &arr); err != nil {
		return false
	}
	return len(arr) == int(n)
}

func newStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mk, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Store{DB: db}, mk
}

func resultColumns() []string {
	return []string{"id", "query", "timestamp", "organic_results", "knowledge_graph", "local_results",
		"related_questions", "related_searches", "inline_images", "answer_box", "ai_response", "location"}
}

func TestSaveSearchResultNormalizesEmptyCategories(t *testing.T) {
	s, mk := newStore(t)

	r := models.NewSearchResult("")
	// Empty collections on object-valued categories must be persisted
	// as NULL, not as empty structures.
	r.LocalResults = []models.LocalResult{}
	r.RelatedQuestions = []models.RelatedQuestion{}
	r.AnswerBox = map[string]interface{}{}

	mk.ExpectExec(`INSERT INTO search_results`).
		WithArgs(r.ID, "Unknown query", sqlmock.AnyArg(),
			[]byte(`[]`), // organic_results: array, never null
			nil,          // knowledge_graph
			nil,          // local_results: empty collapses to absent
			nil,          // related_questions
			[]byte(`[]`), // related_searches: array, never null
			nil,          // inline_images
			nil,          // answer_box
			nil,          // ai_response
			nil,          // location
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := s.SaveSearchResult(context.Background(), r)
	if err != nil {
		t.Fatalf("SaveSearchResult: %v", err)
	}
	if id != r.ID {
		t.Fatalf("id = %q, want %q", id, r.ID)
	}
	if err := mk.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveSearchResultKeepsPopulatedCategories(t *testing.T) {
	s, mk := newStore(t)

	r := models.NewSearchResult("coffee")
	r.OrganicResults = []models.OrganicResult{{Title: "T", Link: "L", Snippet: "S", Position: 1}}
	r.RelatedSearches = []string{"espresso", "latte"}
	desc := "a drink"
	r.KnowledgeGraph = &models.KnowledgeGraph{Title: "Coffee", Description: &desc, Attributes: map[string]interface{}{}}

	mk.ExpectExec(`INSERT INTO search_results`).
		WithArgs(r.ID, "coffee", sqlmock.AnyArg(),
			jsonArrayLen(1),
			sqlmock.AnyArg(), // knowledge_graph json
			nil,
			nil,
			jsonArrayLen(2),
			nil,
			nil,
			nil,
			nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if _, err := s.SaveSearchResult(context.Background(), r); err != nil {
		t.Fatalf("SaveSearchResult: %v", err)
	}
	if err := mk.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetSearchResultRoundTrip(t *testing.T) {
	s, mk := newStore(t)
	ts := time.Now().UTC()

	mk.ExpectQuery(`SELECT id, query, timestamp, organic_results`).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows(resultColumns()).AddRow(
			"abc", "coffee", ts,
			[]byte(`[{"title":"T","link":"L","snippet":"S","position":1}]`),
			nil, nil, nil,
			[]byte(`["espresso"]`),
			nil, nil, nil, nil,
		))

	rec, err := s.GetSearchResult(context.Background(), "abc")
	if err != nil {
		t.Fatalf("GetSearchResult: %v", err)
	}
	if rec.OrganicResults == nil || rec.RelatedSearches == nil {
		t.Fatal("sequences must never be nil")
	}
	if len(rec.OrganicResults) != 1 || rec.OrganicResults[0].Title != "T" {
		t.Fatalf("organic: %+v", rec.OrganicResults)
	}
	if rec.KnowledgeGraph != nil || rec.LocalResults != nil || rec.AnswerBox != nil {
		t.Fatalf("absent categories must stay absent: %+v", rec)
	}
	if rec.AIResponse != nil {
		t.Fatal("ai_response should be absent")
	}
}

func TestGetSearchResultNotFound(t *testing.T) {
	s, mk := newStore(t)
	mk.ExpectQuery(`SELECT id, query, timestamp, organic_results`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(resultColumns()))

	if _, err := s.GetSearchResult(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateAIResponseUnknownID(t *testing.T) {
	s, mk := newStore(t)
	mk.ExpectExec(`UPDATE search_results SET ai_response`).
		WithArgs("summary text", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if ok := s.UpdateAIResponse(context.Background(), "missing", "summary text"); ok {
		t.Fatal("expected false for unknown id")
	}
	if err := mk.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateAIResponseSecondaryInsertFailureKeepsSuccess(t *testing.T) {
	s, mk := newStore(t)
	mk.ExpectExec(`UPDATE search_results SET ai_response`).
		WithArgs("summary text", "abc").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mk.ExpectExec(`INSERT INTO ai_responses`).
		WithArgs("abc", "summary text", sqlmock.AnyArg()).
		WillReturnError(errTest)

	if ok := s.UpdateAIResponse(context.Background(), "abc", "summary text"); !ok {
		t.Fatal("primary update landed, expected true")
	}
	if err := mk.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFixSearchRecordNoOpWhenPopulated(t *testing.T) {
	s, mk := newStore(t)
	mk.ExpectQuery(`SELECT id, query, timestamp, organic_results`).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows(resultColumns()).AddRow(
			"abc", "coffee", time.Now(),
			[]byte(`[{"title":"T","link":"L","snippet":"S","position":1}]`),
			nil, nil, nil, []byte(`[]`), nil, nil, nil, nil,
		))

	src, err := mock.Load()
	if err != nil {
		t.Fatalf("mock.Load: %v", err)
	}
	fixed, err := s.FixSearchRecord(context.Background(), "abc", src.Bundle())
	if err != nil {
		t.Fatalf("FixSearchRecord: %v", err)
	}
	if fixed {
		t.Fatal("expected no-op for populated record")
	}
	if err := mk.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFixSearchRecordOverwritesFromMock(t *testing.T) {
	s, mk := newStore(t)
	mk.ExpectQuery(`SELECT id, query, timestamp, organic_results`).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows(resultColumns()).AddRow(
			"abc", "coffee", time.Now(),
			[]byte(`[]`), nil, nil, nil, []byte(`[]`), nil, nil, nil, nil,
		))
	// Mock truncation: 3 organic, 2 local, 3 questions, 5 searches.
	mk.ExpectExec(`UPDATE search_results SET organic_results`).
		WithArgs(jsonArrayLen(3), sqlmock.AnyArg(), jsonArrayLen(2), jsonArrayLen(3), jsonArrayLen(5), "abc").
		WillReturnResult(sqlmock.NewResult(0, 1))

	src, err := mock.Load()
	if err != nil {
		t.Fatalf("mock.Load: %v", err)
	}
	fixed, err := s.FixSearchRecord(context.Background(), "abc", src.Bundle())
	if err != nil {
		t.Fatalf("FixSearchRecord: %v", err)
	}
	if !fixed {
		t.Fatal("expected overwrite")
	}
	if err := mk.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFixSearchRecordUnknownID(t *testing.T) {
	s, mk := newStore(t)
	mk.ExpectQuery(`SELECT id, query, timestamp, organic_results`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(resultColumns()))

	if _, err := s.FixSearchRecord(context.Background(), "missing", map[string]interface{}{}); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRecentSearchesOrdering(t *testing.T) {
	s, mk := newStore(t)
	now := time.Now().UTC()
	mk.ExpectQuery(`SELECT query, timestamp FROM`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"query", "timestamp"}).
			AddRow("birds", now).
			AddRow("cats", now.Add(-time.Minute)).
			AddRow("dogs", now.Add(-2*time.Minute)))

	items, err := s.RecentSearches(context.Background(), 3)
	if err != nil {
		t.Fatalf("RecentSearches: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Query != "birds" || items[1].Query != "cats" || items[2].Query != "dogs" {
		t.Fatalf("unexpected order: %+v", items)
	}
}

func TestUnavailableStoreNeverPanics(t *testing.T) {
	var s *Store
	ctx := context.Background()

	if _, err := s.SaveSearchResult(ctx, models.NewSearchResult("q")); err == nil {
		t.Fatal("expected failure from unavailable store")
	}
	if _, err := s.GetSearchResult(ctx, "abc"); err == nil {
		t.Fatal("expected failure from unavailable store")
	}
	if ok := s.UpdateAIResponse(ctx, "abc", "text"); ok {
		t.Fatal("expected false from unavailable store")
	}
	if _, err := s.FixSearchRecord(ctx, "abc", nil); err == nil {
		t.Fatal("expected failure from unavailable store")
	}
	if _, err := s.RecentSearches(ctx, 6); err == nil {
		t.Fatal("expected failure from unavailable store")
	}
	if _, err := s.SearchIDsMissingResults(ctx, 10); err == nil {
		t.Fatal("expected failure from unavailable store")
	}
	if err := s.OverwriteCategories(ctx, models.NewSearchResult("q")); err == nil {
		t.Fatal("expected failure from unavailable store")
	}
}
