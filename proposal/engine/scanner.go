package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/propwatch/propwatch/proposal"
	"github.com/propwatch/propwatch/proposal/parser"
)

// ScanResult is the outcome of walking one tracker's working tree.
type ScanResult struct {
	// States are the parsed proposals, stably sorted by number.
	States []proposal.ProposalState

	// ParseFailures records files that matched the pattern but could
	// not be parsed. Non-fatal: the rest of the scan proceeds.
	ParseFailures []*proposal.ParseError

	// FilesMatched counts pattern matches regardless of parse outcome.
	FilesMatched int
}

// Scanner walks a tracker's working tree and parses every matching
// proposal file. Deterministic: an identical tree yields an identical,
// stably sorted result.
type Scanner struct {
	logger *slog.Logger
}

// NewScanner creates a scanner. A nil logger means slog.Default.
func NewScanner(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{logger: logger}
}

// Scan lists files under workdir/proposal_dir matching the tracker's
// file pattern (empty pattern defaults to the type's typical
// extension), reads and hashes each, and dispatches to the matching
// parser. A missing proposal directory is a tracker-level ErrScan.
func (s *Scanner) Scan(ctx context.Context, tracker proposal.Tracker, workdir string) (*ScanResult, error) {
	p, err := parser.ForType(tracker.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", proposal.ErrScan, err)
	}

	root := workdir
	if tracker.ProposalDir != "" {
		root = filepath.Join(workdir, filepath.Clean(tracker.ProposalDir))
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: proposal dir not found: %s", proposal.ErrScan, root)
	}

	pattern := tracker.FilePattern
	if pattern == "" {
		pattern = tracker.Type.DefaultFilePattern()
	}

	result := &ScanResult{}
	byNumber := make(map[int]proposal.ProposalState)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		ok, err := doublestar.Match(pattern, d.Name())
		if err != nil {
			return fmt.Errorf("bad file pattern %q: %w", pattern, err)
		}
		if !ok {
			return nil
		}
		result.FilesMatched++

		content, err := os.ReadFile(path)
		if err != nil {
			result.ParseFailures = append(result.ParseFailures, &proposal.ParseError{Path: path, Reason: err.Error()})
			return nil
		}

		state, err := p.Parse(path, content)
		if err != nil {
			var perr *proposal.ParseError
			if errors.As(err, &perr) {
				s.logger.Warn("skipping unparseable proposal",
					slog.String("tracker", tracker.ID),
					slog.String("path", path),
					slog.String("reason", perr.Reason))
				result.ParseFailures = append(result.ParseFailures, perr)
				return nil
			}
			return err
		}

		state.TrackerID = tracker.ID
		if rel, err := filepath.Rel(workdir, path); err == nil {
			state.FilePath = rel
		}

		// Duplicate numbers keep the lexicographically first path so
		// repeated scans of the same tree agree.
		if prev, ok := byNumber[state.Number]; ok && prev.FilePath <= state.FilePath {
			return nil
		}
		byNumber[state.Number] = *state
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("%w: %v", proposal.ErrScan, walkErr)
	}

	result.States = make([]proposal.ProposalState, 0, len(byNumber))
	for _, st := range byNumber {
		result.States = append(result.States, st)
	}
	sort.Slice(result.States, func(i, j int) bool {
		return result.States[i].Number < result.States[j].Number
	})

	return result, nil
}
