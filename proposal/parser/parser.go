// Package parser extracts proposal metadata from raw document text.
//
// Each proposal format (EIP, Rust RFC, PEP, Django DEP) gets its own
// parser sharing a single contract; a registry dispatches on tracker
// type. Parsers are pure: they read nothing but their arguments and
// never touch the filesystem.
package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/propwatch/propwatch/proposal"
)

// Parser parses one proposal document into its tracked state.
type Parser interface {
	// Parse extracts {number, title, status} from a document. A file
	// whose number or status cannot be determined yields a
	// *proposal.ParseError.
	Parse(path string, content []byte) (*proposal.ProposalState, error)

	// ProposalNumber extracts the proposal number from a file path
	// alone, used for deleted files where no content is available.
	ProposalNumber(path string) (int, error)
}

var registry = map[proposal.TrackerType]Parser{
	proposal.TrackerEIP:       &EIPParser{},
	proposal.TrackerRustRFC:   &RustRFCParser{},
	proposal.TrackerPEP:       &PEPParser{},
	proposal.TrackerDjangoDEP: &DjangoDEPParser{},
}

// ForType returns the parser for the given tracker type.
func ForType(t proposal.TrackerType) (Parser, error) {
	p, ok := registry[t]
	if !ok {
		return nil, fmt.Errorf("no parser for tracker type %q", t)
	}
	return p, nil
}

// ContentHash computes the SHA256 hex digest of a document's content.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
