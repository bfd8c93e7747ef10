// Package report implements the Tech/Report/Contributor data model and
// the merge algebra that combines them (§3, §4.G) plus JSON persistence
// (§4.H).
package report

import (
	"github.com/stackmuncher/stm/internal/kwc"
)

// Counts holds the exact, mutually-exclusive per-line classification
// totals of §4.C. Invariant: TotalLines equals the sum of the
// line-class counters (every field except Files and TotalLines).
type Counts struct {
	Files             int `json:"files,omitempty"`
	TotalLines        int `json:"total_lines,omitempty"`
	CodeLines         int `json:"code_lines,omitempty"`
	LineComments      int `json:"line_comments,omitempty"`
	BlockComments     int `json:"block_comments,omitempty"`
	DocsComments      int `json:"docs_comments,omitempty"`
	InlineComments    int `json:"inline_comments,omitempty"`
	BlankLines        int `json:"blank_lines,omitempty"`
	BracketOnlyLines  int `json:"bracket_only_lines,omitempty"`
}

// Add accumulates other into c in place.
func (c *Counts) Add(other Counts) {
	c.Files += other.Files
	c.TotalLines += other.TotalLines
	c.CodeLines += other.CodeLines
	c.LineComments += other.LineComments
	c.BlockComments += other.BlockComments
	c.DocsComments += other.DocsComments
	c.InlineComments += other.InlineComments
	c.BlankLines += other.BlankLines
	c.BracketOnlyLines += other.BracketOnlyLines
}

// Conserves reports whether TotalLines equals the sum of the
// line-class counters, the law of spec.md §8.
func (c Counts) Conserves() bool {
	return c.TotalLines == c.CodeLines+c.BlankLines+c.BracketOnlyLines+
		c.LineComments+c.InlineComments+c.DocsComments+c.BlockComments
}

// Identity is the (language, muncher_name, file_name, commit_sha1) tuple
// that Tech equality and merge-matching are defined over (§3).
type Identity struct {
	Language     string  `json:"language"`
	MuncherName  string  `json:"muncher_name,omitempty"`
	FileName     *string `json:"file_name,omitempty"`
	CommitSHA1   *string `json:"commit_sha1,omitempty"`
}

// key renders Identity as a comparable map key.
func (id Identity) key() string {
	f := ""
	if id.FileName != nil {
		f = *id.FileName
	}
	c := ""
	if id.CommitSHA1 != nil {
		c = *id.CommitSHA1
	}
	return id.Language + "\x00" + id.MuncherName + "\x00" + f + "\x00" + c
}

// fileKey is the identity used for "same file, ignore commit" matching
// by merge_contributor_reports (§4.G).
func (id Identity) fileKey() string {
	f := ""
	if id.FileName != nil {
		f = *id.FileName
	}
	return id.Language + "\x00" + id.MuncherName + "\x00" + f
}

// Tech is the unit of analysis for one (file, muncher) pair, or, once
// reset and folded, for one aggregated language (§3).
type Tech struct {
	Identity

	CommitDateEpoch *int64  `json:"commit_date_epoch,omitempty"`
	CommitDateISO   *string `json:"commit_date_iso,omitempty"`

	Counts

	Keywords *kwc.Set `json:"keywords,omitempty"`
	Refs     *kwc.Set `json:"refs,omitempty"`
	Pkgs     *kwc.Set `json:"pkgs,omitempty"`
	RefsKw   *kwc.Set `json:"refs_kw,omitempty"`
	PkgsKw   *kwc.Set `json:"pkgs_kw,omitempty"`

	MuncherHash uint64 `json:"muncher_hash,omitempty"`
}

// NewFileTech constructs the Tech produced by the file processor for
// one file, with its identity populated as the processor's contract
// requires (§4.C).
func NewFileTech(language, muncherName, fileName string, muncherHash uint64) *Tech {
	fn := fileName
	return &Tech{
		Identity: Identity{
			Language:    language,
			MuncherName: muncherName,
			FileName:    &fn,
		},
		Counts:      Counts{Files: 1},
		Keywords:    kwc.New(),
		Refs:        kwc.New(),
		Pkgs:        kwc.New(),
		MuncherHash: muncherHash,
	}
}

// ResetFileAndCommitInfo strips file/commit identity and muncher_name,
// the step merge_tech_record performs before folding a per-file Tech
// into a per-language aggregate (§4.G).
func (t *Tech) ResetFileAndCommitInfo() {
	t.FileName = nil
	t.CommitSHA1 = nil
	t.CommitDateEpoch = nil
	t.CommitDateISO = nil
	t.MuncherName = ""
}

// Clone returns a deep copy of t.
func (t *Tech) Clone() *Tech {
	c := *t
	c.Keywords = t.Keywords.Clone()
	c.Refs = t.Refs.Clone()
	c.Pkgs = t.Pkgs.Clone()
	c.RefsKw = t.RefsKw.Clone()
	c.PkgsKw = t.PkgsKw.Clone()
	if t.FileName != nil {
		f := *t.FileName
		c.FileName = &f
	}
	if t.CommitSHA1 != nil {
		s := *t.CommitSHA1
		c.CommitSHA1 = &s
	}
	if t.CommitDateEpoch != nil {
		e := *t.CommitDateEpoch
		c.CommitDateEpoch = &e
	}
	if t.CommitDateISO != nil {
		i := *t.CommitDateISO
		c.CommitDateISO = &i
	}
	return &c
}

// Contributor is one commit author, identified by git_id (§3).
type Contributor struct {
	GitID        string   `json:"git_id"`
	DisplayName  string   `json:"display_name"`
	TouchedFiles []string `json:"touched_files,omitempty"`
	FirstCommit  *string  `json:"first_commit_date,omitempty"`
	LastCommit   *string  `json:"last_commit_date,omitempty"`
}

// Kind discriminates a combined project report from a per-contributor
// report. The assembler sets KindProject; persistence (§4.H) and the
// reset_combined_* cleanups (§4.G) do not read it. Not itself part of
// spec.md's JSON schema: it is excluded from marshaling.
type Kind int

const (
	KindProject Kind = iota
	KindContributor
)

// Report is the user-facing artifact (§3).
type Report struct {
	Kind Kind `json:"-"`

	Tech               []*Tech      `json:"tech,omitempty"`
	PerFileTech        []*Tech      `json:"per_file_tech,omitempty"`
	Timestamp          string       `json:"timestamp"`
	UnprocessedFiles   []string     `json:"unprocessed_file_names,omitempty"`
	UnknownFileTypes   *kwc.Set     `json:"unknown_file_types,omitempty"`
	Contributors       []Contributor `json:"contributors,omitempty"`
	ContributorGitIDs  []string     `json:"contributor_git_ids,omitempty"`
	TreeFiles          []string     `json:"tree_files,omitempty"`
	RemoteURLHashes    []string     `json:"remote_url_hashes,omitempty"`
	DateInit           string       `json:"date_init,omitempty"`
	DateHead           string       `json:"date_head,omitempty"`
	ReportCommitSHA1   string       `json:"report_commit_sha1,omitempty"`
	LogHash            string       `json:"log_hash,omitempty"`
	ReportID           string       `json:"report_id"`
	ReportS3Name       string       `json:"report_s3_name,omitempty"`
	ReportsIncluded    []string     `json:"reports_included,omitempty"`
	GitIDsIncluded     []string     `json:"git_ids_included,omitempty"`
	GithubUserName     string       `json:"github_user_name,omitempty"`
	GithubRepoName     string       `json:"github_repo_name,omitempty"`
	IsSingleCommit     bool         `json:"is_single_commit,omitempty"`
	LastCommitAuthor   string       `json:"last_commit_author,omitempty"`
}
