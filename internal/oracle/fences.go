package oracle

import "strings"

// StripFences removes a surrounding markdown code fence (``` or ```json) from a reply.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// language tag on the opening fence line
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{[") {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimPrefix(s, "JSON")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractJSON returns the JSON payload of a reply that may be fenced or wrapped
// in prose. It never fails; callers detect bad payloads when unmarshalling.
func ExtractJSON(s string) string {
	s = StripFences(s)
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return s
	}

	if i := strings.Index(s, "```"); i >= 0 {
		inner := StripFences(s[i:])
		if j := strings.Index(inner, "```"); j >= 0 {
			inner = inner[:j]
		}
		return strings.TrimSpace(inner)
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
