package server

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stackai/search-relay/internal/normalize"
	"github.com/stackai/search-relay/internal/store"
	"github.com/stackai/search-relay/models"
	"github.com/stackai/search-relay/provider"
	"github.com/stackai/search-relay/tools/websearch"
	"github.com/stackai/search-relay/tools/websearch/mock"
)

// SearchHandler orchestrates one search request: provider call, mock
// fallback, normalization, best-effort persistence and the detached
// summary task.
type SearchHandler struct {
	Store      *store.Store
	Searcher   websearch.Searcher
	Mock       *mock.Source
	Summarizer provider.Provider
	Metrics    *Metrics
	// Timeout bounds each detached summary call.
	Timeout time.Duration
}

var summaryLogger = log.New(log.Writer(), "[SUMMARY] ", log.LstdFlags)

type SearchRequest struct {
	Query      string `json:"query"`
	NumResults int    `json:"num_results"`
	Location   string `json:"location"`
}

// SearchResponse is the immediate reply to POST /api/search.
// ai_response is always null here; clients poll for it separately.
type SearchResponse struct {
	SearchID         string                   `json:"search_id"`
	Query            string                   `json:"query"`
	OrganicResults   []models.OrganicResult   `json:"organic_results"`
	LocalResults     []models.LocalResult     `json:"local_results,omitempty"`
	KnowledgeGraph   *models.KnowledgeGraph   `json:"knowledge_graph,omitempty"`
	RelatedQuestions []models.RelatedQuestion `json:"related_questions,omitempty"`
	RelatedSearches  []string                 `json:"related_searches"`
	InlineImages     []map[string]interface{} `json:"inline_images,omitempty"`
	AnswerBox        map[string]interface{}   `json:"answer_box,omitempty"`
	AIResponse       *string                  `json:"ai_response"`
}

func (h *SearchHandler) Register(g *echo.Group) {
	g.GET("/health", h.health)
	g.POST("/search", h.search)
	g.GET("/search/:id/ai_response", h.aiResponse)
	g.POST("/search/:id/fix", h.fix)
	g.GET("/recent_searches", h.recentSearches)
}

func (h *SearchHandler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *SearchHandler) search(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query cannot be empty")
	}
	if req.NumResults <= 0 {
		req.NumResults = 10
	}
	h.Metrics.SearchesTotal.Inc()

	raw, err := h.liveSearch(c.Request().Context(), req)
	if err != nil {
		// Provider failure is not the client's problem; substitute the
		// pre-captured bundle.
		log.Printf("[SEARCH] provider failed for %q, using mock data: %v", req.Query, err)
		h.Metrics.ProviderFallbacks.Inc()
		if h.Mock == nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "search unavailable")
		}
		raw = h.Mock.Bundle()
	}

	base := models.NewSearchResult(req.Query)
	if req.Location != "" {
		loc := req.Location
		base.Location = &loc
	}
	result := normalize.Result(base, raw)

	// Best-effort persistence: the response goes out with the locally
	// generated id even when nothing was stored.
	if _, err := h.Store.SaveSearchResult(c.Request().Context(), result); err == nil {
		h.verifyPersisted(c.Request().Context(), result)
	}

	if h.Summarizer != nil {
		go h.generateSummary(result.ID, req.Query, normalize.OrganicResults(raw["organic_results"]))
	}

	return c.JSON(http.StatusOK, SearchResponse{
		SearchID:         result.ID,
		Query:            result.Query,
		OrganicResults:   result.OrganicResults,
		LocalResults:     result.LocalResults,
		KnowledgeGraph:   result.KnowledgeGraph,
		RelatedQuestions: result.RelatedQuestions,
		RelatedSearches:  result.RelatedSearches,
		InlineImages:     result.InlineImages,
		AnswerBox:        result.AnswerBox,
		AIResponse:       nil,
	})
}

func (h *SearchHandler) liveSearch(ctx context.Context, req SearchRequest) (map[string]interface{}, error) {
	if h.Searcher == nil {
		return nil, websearch.ErrUnsupportedProvider
	}
	return h.Searcher.Search(ctx, req.Query, req.NumResults, req.Location)
}

// verifyPersisted re-reads the freshly inserted row and force-writes
// the category columns if the organic results were lost on the way
// in. Narrower than the mock-based repair: it reuses this request's
// own data.
func (h *SearchHandler) verifyPersisted(ctx context.Context, result models.SearchResult) {
	if len(result.OrganicResults) == 0 {
		return
	}
	rec, err := h.Store.GetSearchResult(ctx, result.ID)
	if err != nil || len(rec.OrganicResults) > 0 {
		return
	}
	log.Printf("[SEARCH] stored record %s lost its organic results, overwriting", result.ID)
	if err := h.Store.OverwriteCategories(ctx, result); err == nil {
		h.Metrics.RecordsRepaired.Inc()
	}
}

// generateSummary runs detached from the request that scheduled it.
// Its only observable outcomes are log lines, metrics and the
// eventual ai_response row; the original caller never waits on it.
func (h *SearchHandler) generateSummary(searchID, query string, organic []models.OrganicResult) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	text, err := h.Summarizer.Summarize(ctx, query, organic)
	if err != nil {
		summaryLogger.Printf("summary for %s failed: %v", searchID, err)
		h.Metrics.SummaryFailures.Inc()
		return
	}
	if !h.Store.UpdateAIResponse(ctx, searchID, text) {
		summaryLogger.Printf("summary for %s generated but not stored", searchID)
		h.Metrics.SummaryFailures.Inc()
		return
	}
	h.Metrics.SummarySuccesses.Inc()
}

// aiResponse reports the summary status for a search id. An unknown
// id reports "pending" rather than 404 so clients can poll the id
// they were handed even when the original write was lost.
func (h *SearchHandler) aiResponse(c echo.Context) error {
	id := c.Param("id")
	rec, err := h.Store.GetSearchResult(c.Request().Context(), id)
	if err != nil || rec.AIResponse == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"search_id":   id,
			"ai_response": nil,
			"status":      "pending",
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"search_id":   id,
		"ai_response": *rec.AIResponse,
		"status":      "complete",
	})
}

func (h *SearchHandler) fix(c echo.Context) error {
	id := c.Param("id")
	if h.Mock == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "mock data unavailable")
	}
	fixed, err := h.Store.FixSearchRecord(c.Request().Context(), id, h.Mock.Bundle())
	if err == store.ErrNotFound {
		return echo.NewHTTPError(http.StatusNotFound, "search result not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if fixed {
		h.Metrics.RecordsRepaired.Inc()
		return c.JSON(http.StatusOK, map[string]string{
			"search_id": id,
			"status":    "fixed",
			"message":   "missing components restored from mock data",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"search_id": id,
		"status":    "ok",
		"message":   "record already has organic results",
	})
}

func (h *SearchHandler) recentSearches(c echo.Context) error {
	limit := 6
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	items, err := h.Store.RecentSearches(c.Request().Context(), limit)
	if err != nil {
		// Persistence trouble is logged, not surfaced.
		items = []models.RecentSearch{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"recent_searches": items})
}
