package summarize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// decodeModelJSON unmarshals a model completion into v, tolerating the
// usual failure modes of LLM output: markdown fences, leading prose,
// trailing commentary, and mildly broken JSON. Tried in order:
// direct parse, jsonrepair, then the outermost {...} slice.
func decodeModelJSON(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("empty completion")
	}

	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	if repaired, err := jsonrepair.JSONRepair(raw); err == nil {
		if err := json.Unmarshal([]byte(repaired), v); err == nil {
			return nil
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), v); err == nil {
			return nil
		}
	}

	return fmt.Errorf("completion is not valid JSON")
}
