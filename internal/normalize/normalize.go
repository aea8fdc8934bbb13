// Package normalize maps raw provider bundles into the typed result
// categories. Every function is defensive: a missing, wrong-shaped or
// partially malformed category yields the category's zero value, never
// an error.
package normalize

import (
	"github.com/stackai/search-relay/models"
	"github.com/stackai/search-relay/utils"
)

// OrganicResults returns the ranked web hits. Always a non-nil slice;
// non-object entries are skipped.
func OrganicResults(v interface{}) []models.OrganicResult {
	out := []models.OrganicResult{}
	items, ok := v.([]interface{})
	if !ok {
		return out
	}
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, models.OrganicResult{
			Title:     utils.Str(m["title"]),
			Link:      utils.Str(m["link"]),
			Snippet:   utils.Str(m["snippet"]),
			Position:  utils.Int(m["position"]),
			Thumbnail: utils.StrPtr(m["thumbnail"]),
		})
	}
	return out
}

// LocalResults returns business listings, or nil when the category is
// absent. SerpAPI ships the category either as a bare array or wrapped
// in {"places": [...]}.
func LocalResults(v interface{}) []models.LocalResult {
	items, ok := v.([]interface{})
	if !ok {
		wrapper, isMap := v.(map[string]interface{})
		if !isMap {
			return nil
		}
		items, ok = wrapper["places"].([]interface{})
		if !ok {
			return nil
		}
	}
	var out []models.LocalResult
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, models.LocalResult{
			Title:     utils.Str(m["title"]),
			Address:   utils.Str(m["address"]),
			Rating:    utils.FloatPtr(m["rating"]),
			Reviews:   utils.IntPtr(m["reviews"]),
			Phone:     utils.StrPtr(m["phone"]),
			Website:   utils.StrPtr(m["website"]),
			Thumbnail: utils.StrPtr(m["thumbnail"]),
		})
	}
	return out
}

// KnowledgeGraph partitions the panel into title, description and an
// open attribute map of every remaining key. Nil when the source has
// no panel or the payload is not an object.
func KnowledgeGraph(v interface{}) *models.KnowledgeGraph {
	m, ok := v.(map[string]interface{})
	if !ok || len(m) == 0 {
		return nil
	}
	kg := &models.KnowledgeGraph{
		Title:       utils.Str(m["title"]),
		Description: utils.StrPtr(m["description"]),
		Attributes:  map[string]interface{}{},
	}
	for k, val := range m {
		if k == "title" || k == "description" {
			continue
		}
		kg.Attributes[k] = val
	}
	return kg
}

func RelatedQuestions(v interface{}) []models.RelatedQuestion {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []models.RelatedQuestion
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, models.RelatedQuestion{
			Question: utils.Str(m["question"]),
			Snippet:  utils.StrPtr(m["snippet"]),
		})
	}
	return out
}

// RelatedSearches extracts plain query strings. Always a non-nil
// slice. Entries are either {"query": "..."} objects or bare strings;
// anything else is discarded silently.
func RelatedSearches(v interface{}) []string {
	out := []string{}
	items, ok := v.([]interface{})
	if !ok {
		return out
	}
	for _, it := range items {
		switch e := it.(type) {
		case map[string]interface{}:
			if q, ok := e["query"].(string); ok && q != "" {
				out = append(out, q)
			}
		case string:
			if e != "" {
				out = append(out, e)
			}
		}
	}
	return out
}

// InlineImages passes image entries through opaquely.
func InlineImages(v interface{}) []map[string]interface{} {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []map[string]interface{}
	for _, it := range items {
		if m, ok := it.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

// AnswerBox passes the direct-answer snippet through opaquely.
func AnswerBox(v interface{}) map[string]interface{} {
	m, ok := v.(map[string]interface{})
	if !ok || len(m) == 0 {
		return nil
	}
	return m
}

// Result assembles a SearchResult from a raw bundle. The id, query,
// timestamp and location come from the caller; ai_response stays
// absent until the summary lands.
func Result(base models.SearchResult, raw map[string]interface{}) models.SearchResult {
	base.OrganicResults = OrganicResults(raw["organic_results"])
	base.LocalResults = LocalResults(raw["local_results"])
	base.KnowledgeGraph = KnowledgeGraph(raw["knowledge_graph"])
	base.RelatedQuestions = RelatedQuestions(raw["related_questions"])
	base.RelatedSearches = RelatedSearches(raw["related_searches"])
	base.InlineImages = InlineImages(raw["inline_images"])
	base.AnswerBox = AnswerBox(raw["answer_box"])
	return base
}
