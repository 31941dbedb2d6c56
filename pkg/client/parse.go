package client

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/menta2k/avatar-crop/pkg/types"
)

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// ParseFaceAnalysis parses the JSON answer of a vision model.
// Answers that cannot be parsed yield an analysis without faces, never an error.
func ParseFaceAnalysis(raw string) *types.FaceAnalysis {
	raw = SanitizeModelJSON(raw)

	if !strings.HasPrefix(raw, "{") {
		return &types.FaceAnalysis{Description: "model returned non-JSON response"}
	}

	var result types.FaceAnalysis
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return &types.FaceAnalysis{Description: "failed to parse model response"}
	}

	faces := result.Faces[:0]
	for _, f := range result.Faces {
		if f.Box.W <= 0 || f.Box.H <= 0 {
			continue
		}
		faces = append(faces, f)
	}
	result.Faces = faces
	return &result
}

// SanitizeModelJSON removes code fences, comments, and trailing commas from a JSON response
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = stripInlineComments(raw)
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

// stripInlineComments drops // comments that start outside JSON strings
func stripInlineComments(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	inString, escaped, inComment := false, false, false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case inComment:
			if c != '\n' {
				continue
			}
			inComment = false
		case inString:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
		case c == '"':
			inString = true
		case c == '/' && i+1 < len(raw) && raw[i+1] == '/':
			inComment = true
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
