package report

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/stackmuncher/stm/internal/kwc"
)

// techAccumulator folds Tech records keyed by Identity, preserving the
// commutative/associative merge laws of §4.G and §8.
type techAccumulator struct {
	byKey map[string]*Tech
	order []string
}

func newTechAccumulator() *techAccumulator {
	return &techAccumulator{byKey: make(map[string]*Tech)}
}

// mergeTechRecord inserts t into the accumulator after stripping its
// file/commit identity. If an equal-identity record already exists, the
// numeric counters are summed and the multisets are merged in place.
func (a *techAccumulator) mergeTechRecord(t *Tech) {
	reset := t.Clone()
	reset.ResetFileAndCommitInfo()

	key := reset.Identity.key()
	if existing, ok := a.byKey[key]; ok {
		existing.Counts.Add(reset.Counts)
		existing.Keywords.Merge(reset.Keywords)
		existing.Refs.Merge(reset.Refs)
		existing.Pkgs.Merge(reset.Pkgs)
		mergeOptional(&existing.RefsKw, reset.RefsKw)
		mergeOptional(&existing.PkgsKw, reset.PkgsKw)
		return
	}
	a.byKey[key] = reset
	a.order = append(a.order, key)
}

func mergeOptional(dst **kwc.Set, src *kwc.Set) {
	if src == nil {
		return
	}
	if *dst == nil {
		*dst = kwc.New()
	}
	(*dst).Merge(src)
}

func (a *techAccumulator) slice() []*Tech {
	out := make([]*Tech, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, a.byKey[k])
	}
	sortTech(out)
	return out
}

func sortTech(techs []*Tech) {
	sort.Slice(techs, func(i, j int) bool {
		return techs[i].Identity.key() < techs[j].Identity.key()
	})
}

// MergeTechRecord is the exported entry point for §4.G's
// merge_tech_record, operating on a Report's own `tech` set in place.
func (r *Report) MergeTechRecord(t *Tech) {
	acc := newTechAccumulator()
	for _, existing := range r.Tech {
		acc.byKey[existing.Identity.key()] = existing
		acc.order = append(acc.order, existing.Identity.key())
	}
	acc.mergeTechRecord(t)
	r.Tech = acc.slice()
}

// RecomputeTechSection clears `tech` and re-folds every `per_file_tech`
// entry through merge_tech_record. Idempotent (§4.G, §8).
func (r *Report) RecomputeTechSection() {
	acc := newTechAccumulator()
	for _, t := range r.PerFileTech {
		acc.mergeTechRecord(t)
	}
	r.Tech = acc.slice()
}

// RecomputeRefsKwAndPkgsKw derives refs_kw/pkgs_kw for t from its
// refs/pkgs by splitting each token on non-identifier characters and
// recounting (§3), further splitting camelCase runs with
// github.com/fatih/camelcase for finer-grained keyword summaries.
func RecomputeRefsKwAndPkgsKw(t *Tech) {
	t.RefsKw = deriveKw(t.Refs)
	t.PkgsKw = deriveKw(t.Pkgs)
}

func deriveKw(src *kwc.Set) *kwc.Set {
	if src == nil || src.Len() == 0 {
		return nil
	}
	out := kwc.New()
	for _, e := range src.Entries() {
		for _, part := range splitIdentifier(e.Token) {
			if part == "" {
				continue
			}
			out.Increment(part, "", e.Count)
		}
	}
	if out.Len() == 0 {
		return nil
	}
	return out
}

// Merge implements §4.G's project merge. master may be nil, in which
// case other (with refs_kw/pkgs_kw recomputed and unprocessed_file_names
// cleared) is returned unchanged as the new master.
func Merge(master *Report, other *Report, log Logger) *Report {
	acc := newTechAccumulator()
	for _, t := range other.Tech {
		t = t.Clone()
		RecomputeRefsKwAndPkgsKw(t)
		t.MuncherName = ""
		acc.mergeTechRecord(t)
	}
	recomputed := acc.slice()

	if master == nil {
		other.Tech = recomputed
		other.UnprocessedFiles = nil
		return other
	}

	masterAcc := newTechAccumulator()
	for _, existing := range master.Tech {
		masterAcc.byKey[existing.Identity.key()] = existing
		masterAcc.order = append(masterAcc.order, existing.Identity.key())
	}
	for _, t := range recomputed {
		masterAcc.mergeTechRecord(t)
	}
	master.Tech = masterAcc.slice()

	if master.UnknownFileTypes == nil {
		master.UnknownFileTypes = kwc.New()
	}
	master.UnknownFileTypes.Merge(other.UnknownFileTypes)

	if other.ReportS3Name != "" {
		master.ReportsIncluded = appendUnique(master.ReportsIncluded, other.ReportS3Name)
	}

	warnMissing(log, master, other)

	master.DateHead = laterISO(master.DateHead, other.DateHead)
	master.DateInit = earlierISO(master.DateInit, other.DateInit)
	master.ContributorGitIDs = unionStrings(master.ContributorGitIDs, other.ContributorGitIDs)

	return master
}

// Logger is the narrow subset of core.Logger the algebra needs for
// non-fatal warnings; defined locally to avoid report depending on core.
type Logger interface {
	Warnf(string, ...interface{})
}

func warnMissing(log Logger, master, other *Report) {
	if log == nil {
		return
	}
	for _, r := range []*Report{master, other} {
		if r.DateHead == "" {
			log.Warnf("merge: report %s missing date_head", r.ReportS3Name)
		}
		if r.DateInit == "" {
			log.Warnf("merge: report %s missing date_init", r.ReportS3Name)
		}
		if len(r.ContributorGitIDs) == 0 {
			log.Warnf("merge: report %s missing contributor_git_ids", r.ReportS3Name)
		}
	}
}

// MergeContributorReports implements §4.G's merge_contributor_reports:
// most-recent-commit-wins on file identity.
func (r *Report) MergeContributorReports(other *Report, gitID string) {
	byFile := make(map[string]int, len(r.PerFileTech))
	for i, t := range r.PerFileTech {
		byFile[t.Identity.fileKey()] = i
	}

	for _, t := range other.PerFileTech {
		fk := t.Identity.fileKey()
		otherEpoch := epochOf(t)
		if idx, ok := byFile[fk]; ok {
			if epochOf(r.PerFileTech[idx]) >= otherEpoch {
				continue
			}
			r.PerFileTech[idx] = t
			continue
		}
		r.PerFileTech = append(r.PerFileTech, t)
		byFile[fk] = len(r.PerFileTech) - 1
	}

	r.GitIDsIncluded = appendUnique(r.GitIDsIncluded, gitID)
}

func epochOf(t *Tech) int64 {
	if t.CommitDateEpoch == nil {
		return 0
	}
	return *t.CommitDateEpoch
}

// Abridge clears per_file_tech and every Contributor's touched_files,
// used to produce an index-friendly report (§4.G).
func (r *Report) Abridge() {
	r.PerFileTech = nil
	for i := range r.Contributors {
		r.Contributors[i].TouchedFiles = nil
	}
}

// ResetCombinedDevReport nulls out project-only fields after a project
// merge and stamps a fresh id/timestamp (§4.G).
func (r *Report) ResetCombinedDevReport(gitID string, now func() string) {
	r.Contributors = nil
	r.TreeFiles = nil
	r.RemoteURLHashes = nil
	r.ReportCommitSHA1 = ""
	r.LastCommitAuthor = ""
	r.LogHash = ""
	r.PerFileTech = nil
	r.ReportID = uuid.NewString()
	r.Timestamp = now()
	r.GitIDsIncluded = appendUnique(r.GitIDsIncluded, gitID)
}

// ResetCombinedContributorReport is ResetCombinedDevReport's
// counterpart for contributor reports: it keeps per_file_tech (the
// contributor variant still needs it for further merges) but otherwise
// performs the same cleanup.
func (r *Report) ResetCombinedContributorReport(gitID string, now func() string) {
	r.Contributors = nil
	r.TreeFiles = nil
	r.RemoteURLHashes = nil
	r.ReportCommitSHA1 = ""
	r.LastCommitAuthor = ""
	r.LogHash = ""
	r.ReportID = uuid.NewString()
	r.Timestamp = now()
	r.GitIDsIncluded = appendUnique(r.GitIDsIncluded, gitID)
}

func appendUnique(s []string, v string) []string {
	if v == "" {
		return s
	}
	for _, e := range s {
		if e == v {
			return s
		}
	}
	return append(s, v)
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a))
	out := append([]string{}, a...)
	for _, v := range a {
		seen[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := seen[v]; !ok {
			out = append(out, v)
			seen[v] = struct{}{}
		}
	}
	sort.Strings(out)
	return out
}

// laterISO/earlierISO compare ISO-8601 timestamps lexicographically, as
// spec.md §9 notes is only valid once all timestamps share one offset
// (UTC, per this module's ingest normalization).
func laterISO(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if strings.Compare(a, b) >= 0 {
		return a
	}
	return b
}

func earlierISO(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if strings.Compare(a, b) <= 0 {
		return a
	}
	return b
}
