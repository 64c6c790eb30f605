package debate

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

var summaryMarkerRe = regexp.MustCompile(`(?i)\n*SUMMARY_JSON:\s*\n*`)

// ParseSummary extracts the structured envelope from a model reply.
//
// Returns the reply with the envelope stripped (main text), the declared
// position, and one comment per expected neighbor id. The comments map key
// set always equals the expected-neighbor set; neighbors without a comment
// get an empty string.
//
// Fallback tiers, in order: no marker, no brace match after the marker, JSON
// parse failure. Each tier returns the full original text as main text with
// empty position and all-empty comments; only the parse failure is logged.
func ParseSummary(text string, expectedNeighbors []string, labels map[string]string, round int) (mainText, position string, comments map[string]string) {
	comments = make(map[string]string, len(expectedNeighbors))
	fallback := func() (string, string, map[string]string) {
		for _, nid := range expectedNeighbors {
			comments[nid] = ""
		}
		return text, "", comments
	}

	loc := summaryMarkerRe.FindStringIndex(text)
	if loc == nil {
		return fallback()
	}

	mainText = strings.TrimSpace(text[:loc[0]])
	jsonSection := strings.TrimSpace(text[loc[1]:])

	jsonStart := strings.IndexByte(jsonSection, '{')
	if jsonStart == -1 {
		return fallback()
	}

	// Scan for the matching closing brace so trailing prose after the
	// object does not break parsing.
	braceCount := 0
	jsonEnd := -1
	for i := jsonStart; i < len(jsonSection); i++ {
		switch jsonSection[i] {
		case '{':
			braceCount++
		case '}':
			braceCount--
			if braceCount == 0 {
				jsonEnd = i + 1
			}
		}
		if jsonEnd != -1 {
			break
		}
	}
	if jsonEnd == -1 {
		return fallback()
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(jsonSection[jsonStart:jsonEnd]), &data); err != nil {
		slog.Warn("failed to parse summary envelope", "error", err)
		return fallback()
	}

	position = strings.TrimSpace(stringifyValue(data["position"]))

	if round > 1 {
		if rawComments, ok := data["comments"].(map[string]interface{}); ok {
			labelToID := make(map[string]string, len(labels))
			for nid, label := range labels {
				labelToID[strings.ToLower(label)] = nid
			}
			for neighborName, commentValue := range rawComments {
				nid, ok := labelToID[strings.ToLower(strings.TrimSpace(neighborName))]
				if !ok || !contains(expectedNeighbors, nid) {
					continue
				}
				comments[nid] = strings.TrimSpace(stringifyValue(commentValue))
			}
		}
	}

	for _, nid := range expectedNeighbors {
		if _, ok := comments[nid]; !ok {
			comments[nid] = ""
		}
	}

	return mainText, position, comments
}

// stringifyValue coerces arbitrary JSON values to strings. Non-string
// comment and position values are kept, rendered as compact JSON.
func stringifyValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
