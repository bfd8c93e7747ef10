// Package muncher implements the declarative per-language rule bundles
// ("munchers") used to classify source lines and harvest identifiers.
package muncher

import (
	"encoding/binary"
	"encoding/json"
	"regexp"

	"github.com/minio/highwayhash"
	"github.com/pkg/errors"
)

// blankLinePattern is always appended to every muncher's blank-line
// matcher; it is never part of the serialized rule sources.
const blankLinePattern = `^\s*$`

// hashKey is a fixed, published key for the muncher fingerprint. It does
// not need to be secret: highwayhash is used here purely as a fast,
// well-distributed 64-bit structural hash, not as a MAC.
var hashKey = make([]byte, highwayhash.Size)

// patternSet is the declarative form of one rule family: the regex
// source strings as loaded from JSON, plus their compiled counterparts.
// Sources are the hash domain and the serialization form; compiled is
// what the file processor matches against.
type patternSet struct {
	sources  []string
	compiled []*regexp.Regexp
}

func (p *patternSet) compile() []error {
	var errs []error
	compiled := make([]*regexp.Regexp, 0, len(p.sources))
	for _, src := range p.sources {
		re, err := regexp.Compile(src)
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "pattern %q", src))
			continue
		}
		compiled = append(compiled, re)
	}
	p.compiled = compiled
	return errs
}

// MatchAny reports whether any compiled pattern in the set matches line.
func (p *patternSet) MatchAny(line string) bool {
	if p == nil {
		return false
	}
	for _, re := range p.compiled {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// Capture runs every compiled pattern against line and returns the
// harvested tokens: the first capture group if the pattern has one,
// otherwise the whole match.
func (p *patternSet) Capture(line string) []string {
	if p == nil {
		return nil
	}
	var tokens []string
	for _, re := range p.compiled {
		for _, m := range re.FindAllStringSubmatch(line, -1) {
			if len(m) > 1 && m[1] != "" {
				tokens = append(tokens, m[1])
			} else {
				tokens = append(tokens, m[0])
			}
		}
	}
	return tokens
}

// doc is the JSON schema of a muncher rule file (§3, §6).
type doc struct {
	MuncherName        string   `json:"muncher_name"`
	Language           string   `json:"language"`
	Keywords           []string `json:"keywords,omitempty"`
	BracketOnly        []string `json:"bracket_only,omitempty"`
	LineComments       []string `json:"line_comments,omitempty"`
	InlineComments     []string `json:"inline_comments,omitempty"`
	DocComments        []string `json:"doc_comments,omitempty"`
	BlockCommentsStart []string `json:"block_comments_start,omitempty"`
	BlockCommentsEnd   []string `json:"block_comments_end,omitempty"`
	Refs               []string `json:"refs,omitempty"`
	Packages           []string `json:"packages,omitempty"`
}

// Muncher is an immutable, compiled rule bundle for one file family.
// Construct it only via Load; the zero value is not usable.
type Muncher struct {
	name     string
	language string

	keywords           patternSet
	bracketOnly        patternSet
	lineComments       patternSet
	inlineComments     patternSet
	docComments        patternSet
	blockCommentsStart patternSet
	blockCommentsEnd   patternSet
	refs               patternSet
	packages           patternSet
	blank              patternSet

	hash uint64
}

func (m *Muncher) Name() string     { return m.name }
func (m *Muncher) Language() string { return m.language }
func (m *Muncher) Hash() uint64     { return m.hash }

// The Is* methods implement the classification predicates of §4.C; the
// Capture* methods implement the token harvesting of the same section.

func (m *Muncher) IsBlockCommentStart(line string) bool { return m.blockCommentsStart.MatchAny(line) }
func (m *Muncher) IsBlockCommentEnd(line string) bool    { return m.blockCommentsEnd.MatchAny(line) }
func (m *Muncher) IsDocComment(line string) bool         { return m.docComments.MatchAny(line) }
func (m *Muncher) IsLineComment(line string) bool        { return m.lineComments.MatchAny(line) }
func (m *Muncher) IsInlineComment(line string) bool      { return m.inlineComments.MatchAny(line) }
func (m *Muncher) IsBracketOnly(line string) bool        { return m.bracketOnly.MatchAny(line) }
func (m *Muncher) IsBlank(line string) bool              { return m.blank.MatchAny(line) }

func (m *Muncher) CaptureRefs(line string) []string     { return m.refs.Capture(line) }
func (m *Muncher) CapturePackages(line string) []string { return m.packages.Capture(line) }
func (m *Muncher) CaptureKeywords(line string) []string { return m.keywords.Capture(line) }

// Load parses a muncher rule document and compiles every pattern.
// Compilation tries every pattern, collecting all failures; if any
// pattern fails, the whole muncher is rejected (no partially compiled
// muncher is ever produced).
func Load(text []byte, name string) (*Muncher, error) {
	var d doc
	if err := json.Unmarshal(text, &d); err != nil {
		return nil, errors.Wrapf(err, "muncher %q: invalid JSON", name)
	}
	if d.MuncherName == "" {
		d.MuncherName = name
	}

	m := &Muncher{
		name:               d.MuncherName,
		language:           d.Language,
		keywords:           patternSet{sources: d.Keywords},
		bracketOnly:        patternSet{sources: d.BracketOnly},
		lineComments:       patternSet{sources: d.LineComments},
		inlineComments:     patternSet{sources: d.InlineComments},
		docComments:        patternSet{sources: d.DocComments},
		blockCommentsStart: patternSet{sources: d.BlockCommentsStart},
		blockCommentsEnd:   patternSet{sources: d.BlockCommentsEnd},
		refs:               patternSet{sources: d.Refs},
		packages:           patternSet{sources: d.Packages},
		blank:              patternSet{sources: []string{blankLinePattern}},
	}

	var failures []error
	for _, p := range m.patternSets() {
		failures = append(failures, p.compile()...)
	}
	if len(failures) > 0 {
		return nil, errors.Wrapf(combine(failures), "muncher %q: rejected", name)
	}

	m.hash = fingerprint(d)
	return m, nil
}

func (m *Muncher) patternSets() []*patternSet {
	return []*patternSet{
		&m.keywords, &m.bracketOnly, &m.lineComments, &m.inlineComments,
		&m.docComments, &m.blockCommentsStart, &m.blockCommentsEnd,
		&m.refs, &m.packages, &m.blank,
	}
}

func combine(errs []error) error {
	msg := "compilation failed"
	wrapped := errors.New(msg)
	for _, e := range errs {
		wrapped = errors.Wrap(wrapped, e.Error())
	}
	return wrapped
}

// fingerprint derives the stable muncher_hash from the rule sources (not
// the compiled forms) and from name + language, in the order fixed by
// §4.A, using HighwayHash keyed with a fixed, published key.
func fingerprint(d doc) uint64 {
	h, _ := highwayhash.New64(hashKey)
	write := func(s string) {
		_, _ = h.Write([]byte(s))
		_, _ = h.Write([]byte{0})
	}
	write(d.MuncherName)
	write(d.Language)
	for _, group := range [][]string{
		d.Keywords, d.BracketOnly, d.LineComments, d.InlineComments,
		d.DocComments, d.BlockCommentsStart, d.BlockCommentsEnd,
		d.Refs, d.Packages,
	} {
		for _, s := range group {
			write(s)
		}
		write("\x1e") // group separator
	}
	return binary.BigEndian.Uint64(h.Sum(nil))
}
