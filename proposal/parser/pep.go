package parser

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/propwatch/propwatch/proposal"
)

// PEPParser parses Python Enhancement Proposals: reStructuredText with
// an RFC-2822-style header block (PEP:, Title:, Status:).
type PEPParser struct{}

var (
	pepFilenameRe = regexp.MustCompile(`(?i)pep-(\d+)\.(?:rst|txt)$`)
	digitsRe      = regexp.MustCompile(`\d+`)
)

func (p *PEPParser) Parse(path string, content []byte) (*proposal.ProposalState, error) {
	headers := extractRSTHeaders(string(content))

	number := 0
	if raw, ok := headers["pep"]; ok {
		if m := digitsRe.FindString(raw); m != "" {
			number, _ = strconv.Atoi(m)
		}
	}
	if number == 0 {
		n, err := p.ProposalNumber(path)
		if err != nil {
			return nil, proposal.NewParseError(path, "no pep number in headers or filename")
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

func (p *PEPParser) ProposalNumber(path string) (int, error) {
	m := pepFilenameRe.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, proposal.NewParseError(path, "filename does not match pep-<number>.rst")
	}
	return strconv.Atoi(m[1])
}
