package webhookintake

import (
	"encoding/json"
	"strings"
)

// rawEntry is one tolerant parse of a single provider event, keyed by
// whichever of the probed field names was present.
type rawEntry struct {
	signature string
	timestamp int64
	slot      int64
	eventType string
	dealID    string
}

var sigKeys = []string{"signature", "sig", "txSignature"}
var tsKeys = []string{"timestamp", "blockTime"}
var typeKeys = []string{"type", "eventType"}
var dealIDKeys = []string{"dealId", "escrowId", "accountId"}

// parseRaw decodes body tolerantly into a slice of generic maps,
// accepting a top-level array, an object with an "events" array, or a
// single object.
func parseRaw(body []byte) ([]map[string]any, error) {
	var probe any
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, err
	}
	switch v := probe.(type) {
	case []any:
		return toMaps(v), nil
	case map[string]any:
		if events, ok := v["events"].([]any); ok {
			return toMaps(events), nil
		}
		return []map[string]any{v}, nil
	default:
		return nil, nil
	}
}

func toMaps(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// extractEntries probes each raw map for the common field names and
// drops any entry lacking a transaction signature, per the intake
// contract — signature absence means the event cannot be deduplicated
// or correlated, so it is meaningless to carry forward.
func extractEntries(maps []map[string]any) []rawEntry {
	out := make([]rawEntry, 0, len(maps))
	for _, m := range maps {
		sig := firstString(m, sigKeys)
		if strings.TrimSpace(sig) == "" {
			continue
		}
		out = append(out, rawEntry{
			signature: sig,
			timestamp: firstInt(m, tsKeys),
			slot:      firstInt(m, []string{"slot"}),
			eventType: firstString(m, typeKeys),
			dealID:    firstString(m, dealIDKeys),
		})
	}
	return out
}

func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func firstInt(m map[string]any, keys []string) int64 {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int64(n)
		case int64:
			return n
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return i
			}
		}
	}
	return 0
}
