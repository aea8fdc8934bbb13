package mock

import "testing"

func TestLoadEmbeddedSample(t *testing.T) {
	src, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	bundle := src.Bundle()
	organic, ok := bundle["organic_results"].([]interface{})
	if !ok || len(organic) == 0 {
		t.Fatalf("expected non-empty organic_results, got %T", bundle["organic_results"])
	}
	if _, ok := bundle["knowledge_graph"].(map[string]interface{}); !ok {
		t.Fatal("expected a knowledge_graph object")
	}
	// The repair path reads local places and related-search queries.
	wrapper, ok := bundle["local_results"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected local_results wrapper, got %T", bundle["local_results"])
	}
	if places, ok := wrapper["places"].([]interface{}); !ok || len(places) < 2 {
		t.Fatal("expected at least 2 local places")
	}
	if rs, ok := bundle["related_searches"].([]interface{}); !ok || len(rs) < 5 {
		t.Fatal("expected at least 5 related searches")
	}
}
