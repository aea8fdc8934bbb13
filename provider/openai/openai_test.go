package openai_provider

import (
	"strings"
	"testing"

	"github.com/stackai/search-relay/models"
)

func TestBuildSummaryPromptIncludesSnippets(t *testing.T) {
	organic := []models.OrganicResult{
		{Title: "A", Snippet: "Portland has many coffee shops.", Position: 1},
		{Title: "B", Snippet: "Stumptown is a local institution.", Position: 2},
		{Title: "C", Snippet: "   ", Position: 3},
	}
	prompt := BuildSummaryPrompt("coffee shops in portland", organic)
	if !strings.Contains(prompt, `"coffee shops in portland"`) {
		t.Fatalf("query missing from prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Portland has many coffee shops.") {
		t.Fatalf("first snippet missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Stumptown is a local institution.") {
		t.Fatalf("second snippet missing:\n%s", prompt)
	}
}

func TestBuildSummaryPromptPlaceholder(t *testing.T) {
	prompt := BuildSummaryPrompt("obscure query", nil)
	if !strings.Contains(prompt, "No search result snippets are available") {
		t.Fatalf("placeholder missing:\n%s", prompt)
	}
	blankOnly := []models.OrganicResult{{Title: "T", Snippet: ""}}
	prompt = BuildSummaryPrompt("obscure query", blankOnly)
	if !strings.Contains(prompt, "No search result snippets are available") {
		t.Fatalf("placeholder missing for blank snippets:\n%s", prompt)
	}
}
