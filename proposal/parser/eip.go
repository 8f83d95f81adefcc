package parser

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/propwatch/propwatch/proposal"
)

// EIPParser parses Ethereum Improvement Proposals: markdown documents
// with a frontmatter preamble carrying eip, title and status fields.
type EIPParser struct{}

var eipFilenameRe = regexp.MustCompile(`(?i)(?:eip|erc)-(\d+)\.md$`)

func (p *EIPParser) Parse(path string, content []byte) (*proposal.ProposalState, error) {
	meta := extractFrontmatter(string(content))

	number := 0
	if raw, ok := meta["eip"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			number = n
		}
	}
	if number == 0 {
		n, err := p.ProposalNumber(path)
		if err != nil {
			return nil, proposal.NewParseError(path, "no eip number in frontmatter or filename")
		}
		number = n
	}

	rawStatus := meta["status"]
	status := strings.TrimSpace(rawStatus)
	if status == "" {
		return nil, proposal.NewParseError(path, "missing status field")
	}

	title := strings.TrimSpace(meta["title"])
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return &proposal.ProposalState{
		Number:        number,
		Title:         title,
		Status:        status,
		RawStatusText: rawStatus,
		Type:          meta["type"],
		Author:        meta["author"],
		FilePath:      path,
		ContentHash:   ContentHash(content),
	}, nil
}

func (p *EIPParser) ProposalNumber(path string) (int, error) {
	m := eipFilenameRe.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, proposal.NewParseError(path, "filename does not match eip-<number>.md")
	}
	return strconv.Atoi(m[1])
}
