package analysis

import (
	"encoding/json"
	"strings"
)

// snippetLength bounds the raw-output excerpt carried by a ParseError.
const snippetLength = 100

// parseResult repairs raw model output into a Result. Models wrap their
// JSON in fenced blocks and conversational filler often enough that
// parse-and-trust is not an option: markers are stripped, the substring
// between the first opening and last closing brace is extracted, and
// only then is the payload parsed.
func parseResult(raw string) (*Result, error) {
	cleaned := stripFences(raw)

	start := strings.IndexByte(cleaned, '{')
	end := strings.LastIndexByte(cleaned, '}')
	if start < 0 || end <= start {
		return nil, &ParseError{Raw: snippet(raw)}
	}

	var result Result
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &result); err != nil {
		return nil, &ParseError{Raw: snippet(raw)}
	}
	return &result, nil
}

// stripFences removes Markdown code-fence markers, with or without a
// language tag, wherever they appear.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// snippet returns the first snippetLength characters of raw output.
func snippet(raw string) string {
	if len(raw) <= snippetLength {
		return raw
	}
	return raw[:snippetLength]
}
