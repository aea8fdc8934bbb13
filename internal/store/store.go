package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/stackai/search-relay/internal/normalize"
	"github.com/stackai/search-relay/models"
)

// Store is the persistence gateway over the search_results and
// ai_responses tables. A nil Store (construction failed at startup)
// is valid: every operation degrades to a logged no-op failure so the
// request path never crashes on an unreachable database.
type Store struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("search result not found")

var logger = log.New(log.Writer(), "[STORE] ", log.LstdFlags)

func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func (s *Store) available() bool { return s != nil && s.DB != nil }

// SaveSearchResult inserts the aggregate, applying the persistence
// normalization rules first: organic_results and related_searches are
// always JSON arrays (never null), object-valued optional categories
// collapse to NULL when empty, and a blank query becomes the
// "Unknown query" sentinel. Returns the stored id.
func (s *Store) SaveSearchResult(ctx context.Context, r models.SearchResult) (string, error) {
	if !s.available() {
		logger.Printf("store unavailable, search result %s not saved", r.ID)
		return "", fmt.Errorf("store unavailable")
	}
	if r.Query == "" {
		r.Query = "Unknown query"
	}
	organic, err := marshalArray(r.OrganicResults)
	if err != nil {
		return "", fmt.Errorf("marshal organic_results: %w", err)
	}
	related, err := marshalArray(r.RelatedSearches)
	if err != nil {
		return "", fmt.Errorf("marshal related_searches: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
INSERT INTO search_results (id, query, timestamp, organic_results, knowledge_graph, local_results, related_questions, related_searches, inline_images, answer_box, ai_response, location)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		r.ID, r.Query, r.Timestamp,
		organic,
		marshalOptional(r.KnowledgeGraph, r.KnowledgeGraph != nil),
		marshalOptional(r.LocalResults, len(r.LocalResults) > 0),
		marshalOptional(r.RelatedQuestions, len(r.RelatedQuestions) > 0),
		related,
		marshalOptional(r.InlineImages, len(r.InlineImages) > 0),
		marshalOptional(r.AnswerBox, len(r.AnswerBox) > 0),
		r.AIResponse, r.Location)
	if err != nil {
		logger.Printf("save search result %s: %v", r.ID, err)
		return "", err
	}
	return r.ID, nil
}

// GetSearchResult reads the full stored row. ErrNotFound when the id
// is unknown; a plain error when the store is unreachable.
func (s *Store) GetSearchResult(ctx context.Context, id string) (*models.SearchResult, error) {
	if !s.available() {
		logger.Printf("store unavailable, cannot read search result %s", id)
		return nil, fmt.Errorf("store unavailable")
	}
	row := s.DB.QueryRowContext(ctx, `
SELECT id, query, timestamp, organic_results, knowledge_graph, local_results, related_questions, related_searches, inline_images, answer_box, ai_response, location
FROM search_results WHERE id=$1`, id)

	var (
		r                       models.SearchResult
		organicB, relatedB      []byte
		kgB, localB, questionsB []byte
		imagesB, answerB        []byte
	)
	err := row.Scan(&r.ID, &r.Query, &r.Timestamp, &organicB, &kgB, &localB, &questionsB, &relatedB, &imagesB, &answerB, &r.AIResponse, &r.Location)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Printf("read search result %s: %v", id, err)
		return nil, err
	}

	r.OrganicResults = []models.OrganicResult{}
	r.RelatedSearches = []string{}
	if len(organicB) > 0 {
		_ = json.Unmarshal(organicB, &r.OrganicResults)
	}
	if len(relatedB) > 0 {
		_ = json.Unmarshal(relatedB, &r.RelatedSearches)
	}
	if len(kgB) > 0 {
		_ = json.Unmarshal(kgB, &r.KnowledgeGraph)
	}
	if len(localB) > 0 {
		_ = json.Unmarshal(localB, &r.LocalResults)
	}
	if len(questionsB) > 0 {
		_ = json.Unmarshal(questionsB, &r.RelatedQuestions)
	}
	if len(imagesB) > 0 {
		_ = json.Unmarshal(imagesB, &r.InlineImages)
	}
	if len(answerB) > 0 {
		_ = json.Unmarshal(answerB, &r.AnswerBox)
	}
	return &r, nil
}

// UpdateAIResponse sets ai_response on the search result and records
// the same text in the ai_responses table. The secondary insert is
// best-effort: its failure does not invalidate the primary update.
// Returns false when the id does not exist or the store is down.
func (s *Store) UpdateAIResponse(ctx context.Context, searchID, text string) bool {
	if !s.available() {
		logger.Printf("store unavailable, ai response for %s not saved", searchID)
		return false
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE search_results SET ai_response=$1 WHERE id=$2`, text, searchID)
	if err != nil {
		logger.Printf("update ai response for %s: %v", searchID, err)
		return false
	}
	if n, _ := res.RowsAffected(); n == 0 {
		logger.Printf("no search result with id %s, ai response dropped", searchID)
		return false
	}

	rec := models.AIResponse{SearchID: searchID, Response: text, Timestamp: time.Now().UTC()}
	if _, err := s.DB.ExecContext(ctx, `INSERT INTO ai_responses (search_id, response, timestamp) VALUES ($1,$2,$3)`,
		rec.SearchID, rec.Response, rec.Timestamp); err != nil {
		// Primary update already landed; keep the success.
		logger.Printf("insert ai_responses record for %s: %v", searchID, err)
	}
	return true
}

// FixSearchRecord overwrites the category fields of a stored record
// from the mock bundle when organic_results is empty. Idempotent: a
// record that already has organic results is a no-op.
// Returns whether an overwrite happened.
func (s *Store) FixSearchRecord(ctx context.Context, searchID string, mockBundle map[string]interface{}) (bool, error) {
	if !s.available() {
		logger.Printf("store unavailable, cannot fix search record %s", searchID)
		return false, fmt.Errorf("store unavailable")
	}
	rec, err := s.GetSearchResult(ctx, searchID)
	if err != nil {
		return false, err
	}
	if len(rec.OrganicResults) > 0 {
		return false, nil
	}

	organic := truncateOrganic(normalize.OrganicResults(mockBundle["organic_results"]), 3)
	local := truncateLocal(normalize.LocalResults(mockBundle["local_results"]), 2)
	questions := truncateQuestions(normalize.RelatedQuestions(mockBundle["related_questions"]), 3)
	searches := truncateStrings(normalize.RelatedSearches(mockBundle["related_searches"]), 5)
	kg := normalize.KnowledgeGraph(mockBundle["knowledge_graph"])

	organicB, err := marshalArray(organic)
	if err != nil {
		return false, err
	}
	relatedB, err := marshalArray(searches)
	if err != nil {
		return false, err
	}
	_, err = s.DB.ExecContext(ctx, `
UPDATE search_results SET organic_results=$1, knowledge_graph=$2, local_results=$3, related_questions=$4, related_searches=$5
WHERE id=$6`,
		organicB,
		marshalOptional(kg, kg != nil),
		marshalOptional(local, len(local) > 0),
		marshalOptional(questions, len(questions) > 0),
		relatedB,
		searchID)
	if err != nil {
		logger.Printf("fix search record %s: %v", searchID, err)
		return false, err
	}
	return true, nil
}

// OverwriteCategories force-writes the category columns of an
// existing row from an in-memory result. Failsafe used when a fresh
// insert came back without the organic results it was given; unlike
// FixSearchRecord it reuses the request's own data, not the mock.
func (s *Store) OverwriteCategories(ctx context.Context, r models.SearchResult) error {
	if !s.available() {
		return fmt.Errorf("store unavailable")
	}
	organic, err := marshalArray(r.OrganicResults)
	if err != nil {
		return err
	}
	related, err := marshalArray(r.RelatedSearches)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
UPDATE search_results SET organic_results=$1, knowledge_graph=$2, local_results=$3, related_questions=$4, related_searches=$5, inline_images=$6, answer_box=$7
WHERE id=$8`,
		organic,
		marshalOptional(r.KnowledgeGraph, r.KnowledgeGraph != nil),
		marshalOptional(r.LocalResults, len(r.LocalResults) > 0),
		marshalOptional(r.RelatedQuestions, len(r.RelatedQuestions) > 0),
		related,
		marshalOptional(r.InlineImages, len(r.InlineImages) > 0),
		marshalOptional(r.AnswerBox, len(r.AnswerBox) > 0),
		r.ID)
	if err != nil {
		logger.Printf("overwrite categories for %s: %v", r.ID, err)
	}
	return err
}

// RecentSearches lists the most recent distinct queries, newest
// first. De-duplication is case-insensitive, keeping each query's
// latest submission.
func (s *Store) RecentSearches(ctx context.Context, limit int) ([]models.RecentSearch, error) {
	if !s.available() {
		logger.Printf("store unavailable, cannot list recent searches")
		return nil, fmt.Errorf("store unavailable")
	}
	if limit <= 0 {
		limit = 6
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT query, timestamp FROM (
  SELECT DISTINCT ON (lower(query)) query, timestamp
  FROM search_results
  ORDER BY lower(query), timestamp DESC
) latest
ORDER BY timestamp DESC
LIMIT $1`, limit)
	if err != nil {
		logger.Printf("list recent searches: %v", err)
		return nil, err
	}
	defer rows.Close()
	out := []models.RecentSearch{}
	for rows.Next() {
		var rs models.RecentSearch
		if err := rows.Scan(&rs.Query, &rs.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

// SearchIDsMissingResults lists ids whose organic_results came back
// empty, for the repair sweep.
func (s *Store) SearchIDsMissingResults(ctx context.Context, limit int) ([]string, error) {
	if !s.available() {
		return nil, fmt.Errorf("store unavailable")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id FROM search_results
WHERE organic_results IS NULL OR organic_results = '[]'::jsonb
ORDER BY timestamp DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// marshalArray always produces a JSON array, treating nil as empty.
func marshalArray(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return []byte("[]"), nil
	}
	return b, nil
}

// marshalOptional produces NULL for absent or empty categories so
// stored rows never carry empty objects or empty optional lists.
func marshalOptional(v interface{}, present bool) interface{} {
	if !present {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func truncateOrganic(in []models.OrganicResult, n int) []models.OrganicResult {
	if len(in) > n {
		return in[:n]
	}
	return in
}

func truncateLocal(in []models.LocalResult, n int) []models.LocalResult {
	if len(in) > n {
		return in[:n]
	}
	return in
}

func truncateQuestions(in []models.RelatedQuestion, n int) []models.RelatedQuestion {
	if len(in) > n {
		return in[:n]
	}
	return in
}

func truncateStrings(in []string, n int) []string {
	if len(in) > n {
		return in[:n]
	}
	return in
}
