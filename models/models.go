package models

import (
	"time"

	"github.com/google/uuid"
)

// OrganicResult is a standard ranked web-search hit.
type OrganicResult struct {
	Title     string  `json:"title"`
	Link      string  `json:"link"`
	Snippet   string  `json:"snippet"`
	Position  int     `json:"position"`
	Thumbnail *string `json:"thumbnail,omitempty"`
}

// LocalResult is a business/place listing.
type LocalResult struct {
	Title     string   `json:"title"`
	Address   string   `json:"address"`
	Rating    *float64 `json:"rating,omitempty"`
	Reviews   *int     `json:"reviews,omitempty"`
	Phone     *string  `json:"phone,omitempty"`
	Website   *string  `json:"website,omitempty"`
	Thumbnail *string  `json:"thumbnail,omitempty"`
}

// KnowledgeGraph is the structured panel tied to the query subject.
// Attributes carries every source field that is not title/description.
type KnowledgeGraph struct {
	Title       string                 `json:"title"`
	Description *string                `json:"description,omitempty"`
	Attributes  map[string]interface{} `json:"attributes"`
}

type RelatedQuestion struct {
	Question string  `json:"question"`
	Snippet  *string `json:"snippet,omitempty"`
}

// SearchResult is the aggregate persisted per query submission.
// organic_results and related_searches are never nil; the remaining
// optional categories are nil when the source had none.
type SearchResult struct {
	ID               string                   `json:"id"`
	Query            string                   `json:"query"`
	Timestamp        time.Time                `json:"timestamp"`
	OrganicResults   []OrganicResult          `json:"organic_results"`
	KnowledgeGraph   *KnowledgeGraph          `json:"knowledge_graph,omitempty"`
	LocalResults     []LocalResult            `json:"local_results,omitempty"`
	RelatedQuestions []RelatedQuestion        `json:"related_questions,omitempty"`
	RelatedSearches  []string                 `json:"related_searches"`
	InlineImages     []map[string]interface{} `json:"inline_images,omitempty"`
	AnswerBox        map[string]interface{}   `json:"answer_box,omitempty"`
	AIResponse       *string                  `json:"ai_response"`
	Location         *string                  `json:"location,omitempty"`
}

// NewSearchResult allocates the aggregate with its identity and
// creation time set. Both are immutable afterwards.
func NewSearchResult(query string) SearchResult {
	return SearchResult{
		ID:              uuid.NewString(),
		Query:           query,
		Timestamp:       time.Now().UTC(),
		OrganicResults:  []OrganicResult{},
		RelatedSearches: []string{},
	}
}

// AIResponse is the secondary record written once the summary call
// completes. SearchID references the owning SearchResult by
// convention only; no FK constraint backs it.
type AIResponse struct {
	SearchID  string    `json:"search_id"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// RecentSearch is one entry of the recent-searches listing.
type RecentSearch struct {
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}
