package parser

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontmatterScanLimit bounds how many lines we search for the closing
// delimiter; EIP preambles are short, bodies can be huge.
const frontmatterScanLimit = 4000

var (
	fmKeyValueRe = regexp.MustCompile(`^([A-Za-z0-9_-]+)\s*:\s*(.*)$`)
	fmListItemRe = regexp.MustCompile(`^\s+-\s+`)
)

// extractFrontmatter pulls the key/value header block delimited by ---
// lines at the top of a markdown document. Keys are lowercased; list
// values are joined with ", ".
//
// It tries strict YAML first and falls back to a tolerant line scanner,
// because real EIP preambles contain values (unquoted colons, author
// lists) that are not valid YAML.
func extractFrontmatter(content string) map[string]string {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return nil
	}

	end := -1
	limit := len(lines)
	if limit > frontmatterScanLimit {
		limit = frontmatterScanLimit
	}
	for i := 1; i < limit; i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		return nil
	}

	block := strings.Join(lines[1:end], "\n")
	if meta := yamlFrontmatter(block); meta != nil {
		return meta
	}
	return scanFrontmatter(lines[1:end])
}

// yamlFrontmatter parses the block as YAML, flattening values to strings.
func yamlFrontmatter(block string) map[string]string {
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(block), &raw); err != nil || raw == nil {
		return nil
	}

	meta := make(map[string]string, len(raw))
	for k, v := range raw {
		key := strings.ToLower(strings.TrimSpace(k))
		switch val := v.(type) {
		case string:
			meta[key] = strings.TrimSpace(val)
		case []any:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				parts = append(parts, strings.TrimSpace(fmt.Sprint(item)))
			}
			meta[key] = strings.Join(parts, ", ")
		case nil:
			meta[key] = ""
		default:
			meta[key] = strings.TrimSpace(fmt.Sprint(val))
		}
	}
	return meta
}

// scanFrontmatter is the tolerant fallback: key: value lines with
// indented "- item" list continuations, comments and blanks skipped.
func scanFrontmatter(lines []string) map[string]string {
	meta := make(map[string]string)
	var listKey string
	var listItems []string

	flush := func() {
		if listKey != "" && len(listItems) > 0 {
			meta[listKey] = strings.Join(listItems, ", ")
		}
		listKey = ""
		listItems = nil
	}

	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if listKey != "" && fmListItemRe.MatchString(line) {
			listItems = append(listItems, strings.TrimSpace(fmListItemRe.ReplaceAllString(line, "")))
			continue
		}

		m := fmKeyValueRe.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		flush()

		key := strings.ToLower(strings.TrimSpace(m[1]))
		value := strings.TrimSpace(m[2])
		if value == "" {
			listKey = key
			continue
		}
		meta[key] = strings.Trim(value, `"'`)
	}
	flush()

	return meta
}
