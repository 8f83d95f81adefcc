package parser

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/propwatch/propwatch/proposal"
)

// DjangoDEPParser parses Django Enhancement Proposals: RST header block
// first, falling back to the "DEP N: Title" heading some older DEPs use
// instead of a Title header.
type DjangoDEPParser struct{}

// depTitleScanLimit bounds the heading fallback search.
const depTitleScanLimit = 40

var (
	depHeadingRe     = regexp.MustCompile(`(?i)^DEP\s+(\d+)\s*:\s*(.+)$`)
	depBareHeadingRe = regexp.MustCompile(`(?i)^DEP\s+(\d+)\b(.+)$`)
)

func (p *DjangoDEPParser) Parse(path string, content []byte) (*proposal.ProposalState, error) {
	text := string(content)
	headers := extractRSTHeaders(text)

	number := 0
	if raw, ok := headers["dep"]; ok {
		if m := digitsRe.FindString(raw); m != "" {
			number, _ = strconv.Atoi(m)
		}
	}
	if number == 0 {
		n, err := p.ProposalNumber(path)
		if err != nil {
			return nil, proposal.NewParseError(path, "no dep number in headers or filename")
		}
		number = n
	}

	rawStatus := headers["status"]
	status := strings.TrimSpace(rawStatus)
	if status == "" {
		return nil, proposal.NewParseError(path, "missing Status header")
	}

	title := strings.TrimSpace(headers["title"])
	if title == "" {
		title = depHeadingTitle(text)
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return &proposal.ProposalState{
		Number:        number,
		Title:         title,
		Status:        status,
		RawStatusText: rawStatus,
		Type:          headers["type"],
		Author:        headers["author"],
		FilePath:      path,
		ContentHash:   ContentHash(content),
	}, nil
}

// depHeadingTitle scans the top of the document for a "DEP N: Title"
// style heading.
func depHeadingTitle(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) > depTitleScanLimit {
		lines = lines[:depTitleScanLimit]
	}
	for _, raw := range lines {
		line := strings.TrimSpace(strings.TrimRight(raw, "\r"))
		if m := depHeadingRe.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[2])
		}
		if m := depBareHeadingRe.FindStringSubmatch(line); m != nil {
			rest := strings.TrimSpace(m[2])
			if rest != "" {
				return strings.TrimSpace(strings.TrimLeft(rest, ":-– "))
			}
		}
	}
	return ""
}

func (p *DjangoDEPParser) ProposalNumber(path string) (int, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m := digitsRe.FindString(stem)
	if m == "" {
		return 0, proposal.NewParseError(path, "no DEP number in filename")
	}
	return strconv.Atoi(m)
}
