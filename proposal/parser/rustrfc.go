package parser

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/propwatch/propwatch/proposal"
)

// RustRFCParser parses Rust RFCs. RFCs carry no machine-readable status
// field, so the parser searches the first lines for a status/state
// annotation and degrades to "unknown" rather than failing; one
// malformed RFC never blocks the tracker.
type RustRFCParser struct{}

// rfcStatusScanLimit bounds the status search; annotations, when
// present, live near the top of the document.
const rfcStatusScanLimit = 200

var (
	rfcFilenameRe = regexp.MustCompile(`^(\d+)`)
	rfcStatusRe   = regexp.MustCompile(`(?i)^(?:status|state)\s*:\s*(.+)$`)
	rfcAuthorRe   = regexp.MustCompile(`(?i)^author\s*:\s*(.+)$`)
)

func (p *RustRFCParser) Parse(path string, content []byte) (*proposal.ProposalState, error) {
	number, err := p.ProposalNumber(path)
	if err != nil {
		return nil, err
	}

	title := ""
	status := "unknown"
	rawStatus := ""
	author := ""

	lines := strings.Split(string(content), "\n")
	if len(lines) > rfcStatusScanLimit {
		lines = lines[:rfcStatusScanLimit]
	}
	for _, raw := range lines {
		line := strings.TrimSpace(strings.TrimRight(raw, "\r"))
		if title == "" && strings.HasPrefix(line, "#") {
			title = strings.TrimSpace(strings.TrimLeft(line, "#"))
			continue
		}
		if m := rfcStatusRe.FindStringSubmatch(line); m != nil {
			rawStatus = m[1]
			status = strings.TrimSpace(m[1])
			continue
		}
		if m := rfcAuthorRe.FindStringSubmatch(line); m != nil {
			author = strings.TrimSpace(m[1])
		}
	}

	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return &proposal.ProposalState{
		Number:        number,
		Title:         title,
		Status:        status,
		RawStatusText: rawStatus,
		Author:        author,
		FilePath:      path,
		ContentHash:   ContentHash(content),
	}, nil
}

func (p *RustRFCParser) ProposalNumber(path string) (int, error) {
	m := rfcFilenameRe.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, proposal.NewParseError(path, "filename does not start with an RFC number")
	}
	return strconv.Atoi(m[1])
}
