package parser

import (
	"regexp"
	"strings"
)

// rstHeaderScanLimit bounds the header search; PEP and DEP headers sit
// at the very top of the document.
const rstHeaderScanLimit = 400

var (
	rstHeaderRe    = regexp.MustCompile(`^:?\s*([A-Za-z][A-Za-z0-9\- ]+):\s*(.+)$`)
	rstUnderlineRe = regexp.MustCompile("^[=\\-`~^+*#]{3,}$")
)

// rstHeaderKeys are the bare (non-field-list) keys accepted before the
// header block is considered started. Anything else at the top of the
// file is prose, not metadata.
var rstHeaderKeys = map[string]bool{
	"pep":     true,
	"dep":     true,
	"title":   true,
	"author":  true,
	"status":  true,
	"type":    true,
	"topic":   true,
	"created": true,
}

// extractRSTHeaders parses the RFC-2822-style header block used by PEPs
// and Django DEPs, accepting both bare "Key: value" lines and
// field-list ":Key: value" lines. Keys are lowercased with spaces
// replaced by underscores. The block ends at the first blank or
// non-header line after it started.
func extractRSTHeaders(content string) map[string]string {
	headers := make(map[string]string)
	started := false

	lines := strings.Split(content, "\n")
	if len(lines) > rstHeaderScanLimit {
		lines = lines[:rstHeaderScanLimit]
	}

	for _, raw := range lines {
		stripped := strings.TrimSpace(strings.TrimRight(raw, "\r"))

		if !started {
			if stripped == "" || rstUnderlineRe.MatchString(stripped) {
				continue
			}
			m := rstHeaderRe.FindStringSubmatch(stripped)
			if m == nil {
				continue
			}
			key := rstKey(m[1])
			if !strings.HasPrefix(stripped, ":") && !rstHeaderKeys[key] {
				continue
			}
			started = true
			headers[key] = strings.TrimSpace(m[2])
			continue
		}

		if stripped == "" {
			break
		}
		m := rstHeaderRe.FindStringSubmatch(stripped)
		if m == nil {
			break
		}
		headers[rstKey(m[1])] = strings.TrimSpace(m[2])
	}

	return headers
}

func rstKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}
