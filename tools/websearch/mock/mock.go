package mock

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed serp_sample.json
var sampleJSON []byte

// Source is a pre-captured SerpAPI result bundle used when the live
// provider call fails. Parsed once at startup; read-only afterwards.
type Source struct {
	bundle map[string]interface{}
}

func Load() (*Source, error) {
	var bundle map[string]interface{}
	if err := json.Unmarshal(sampleJSON, &bundle); err != nil {
		return nil, fmt.Errorf("mock: parse embedded sample: %w", err)
	}
	if len(bundle) == 0 {
		return nil, fmt.Errorf("mock: embedded sample is empty")
	}
	return &Source{bundle: bundle}, nil
}

// Bundle returns the raw field bundle. Callers must not mutate it.
func (s *Source) Bundle() map[string]interface{} {
	return s.bundle
}
