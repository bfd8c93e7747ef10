// Package fileproc implements the line-by-line state machine that
// classifies one decoded file under a muncher's rules and accumulates a
// Tech record (§4.C).
package fileproc

import (
	"path/filepath"
	"strings"

	"github.com/stackmuncher/stm/internal/muncher"
	"github.com/stackmuncher/stm/internal/report"
)

// CommitCoords carries the optional commit coordinates attached to a
// per-file Tech (§3). A nil *CommitCoords means the caller is analysing
// a file outside any commit context (e.g. a dry run).
type CommitCoords struct {
	SHA1      string
	DateEpoch int64
	DateISO   string
}

// Process classifies every line of lines under m and returns the
// resulting per-file Tech, identified by fileName and, when given, by
// commit. treeFilesHint, when non-nil, is consulted by
// removeLocalImports to suppress self-imports (§4.C post-processing).
func Process(lines []string, m *muncher.Muncher, fileName string, commit *CommitCoords, treeFilesHint []string) *report.Tech {
	t := report.NewFileTech(m.Language(), m.Name(), fileName, m.Hash())
	if commit != nil {
		sha := commit.SHA1
		epoch := commit.DateEpoch
		iso := commit.DateISO
		t.CommitSHA1 = &sha
		t.CommitDateEpoch = &epoch
		t.CommitDateISO = &iso
	}

	t.TotalLines = len(lines)

	insideBlock := false
	for _, line := range lines {
		switch {
		case insideBlock:
			t.BlockComments++
			if m.IsBlockCommentEnd(line) {
				insideBlock = false
			}
		case m.IsBlockCommentStart(line):
			t.BlockComments++
			if !m.IsBlockCommentEnd(line) {
				insideBlock = true
			}
		case m.IsDocComment(line):
			t.DocsComments++
		case m.IsLineComment(line):
			t.LineComments++
		case m.IsInlineComment(line):
			t.InlineComments++
		case m.IsBracketOnly(line):
			t.BracketOnlyLines++
		case m.IsBlank(line):
			t.BlankLines++
		default:
			t.CodeLines++
			harvest(t, m, line)
		}
	}

	removeLocalImports(t, treeFilesHint)
	return t
}

func harvest(t *report.Tech, m *muncher.Muncher, line string) {
	for _, tok := range m.CaptureRefs(line) {
		t.Refs.Increment(tok, "ref", 1)
	}
	for _, tok := range m.CapturePackages(line) {
		t.Pkgs.Increment(tok, "pkg", 1)
	}
	for _, tok := range m.CaptureKeywords(line) {
		t.Keywords.Increment(tok, "keyword", 1)
	}
}

// removeLocalImports strips from refs any token that equals a tracked
// file's path, or equals a tracked file's basename-without-extension -
// the self-import suppression of §4.C.
func removeLocalImports(t *report.Tech, treeFilesHint []string) {
	if len(treeFilesHint) == 0 || t.Refs == nil {
		return
	}
	stems := make(map[string]struct{}, len(treeFilesHint))
	exact := make(map[string]struct{}, len(treeFilesHint))
	for _, f := range treeFilesHint {
		exact[f] = struct{}{}
		base := filepath.Base(f)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		if stem != "" {
			stems[stem] = struct{}{}
		}
	}
	for _, e := range t.Refs.Entries() {
		if _, ok := exact[e.Token]; ok {
			t.Refs.Delete(e.Token)
			continue
		}
		if _, ok := stems[e.Token]; ok {
			t.Refs.Delete(e.Token)
		}
	}
}
