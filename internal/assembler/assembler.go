// Package assembler implements the report assembler of §4.F: it drives
// the muncher store, the VCS adapter and the file processor to build or
// incrementally refresh a Report, fanning per-file work out across a
// worker pool the way the teacher fans diff/burndown work across
// PipelineItems, adapted here to task-parallel-over-files instead of
// commit-by-commit.
package assembler

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Jeffail/tunny"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/stackmuncher/stm/internal/blobreader"
	"github.com/stackmuncher/stm/internal/core"
	"github.com/stackmuncher/stm/internal/fileproc"
	"github.com/stackmuncher/stm/internal/kwc"
	"github.com/stackmuncher/stm/internal/muncher"
	"github.com/stackmuncher/stm/internal/report"
	"github.com/stackmuncher/stm/internal/vcs"
)

// DefaultWorkerCount is used when Options.Workers is left at zero.
const DefaultWorkerCount = 4

// Options parameterizes one Build call (§4.F's `(project_dir, rules_dir,
// user?, repo?)`, plus the worker-pool size this module adds).
type Options struct {
	ProjectDir string
	RulesDir   string
	User       string
	Repo       string
	Workers    int

	// Prior is the previously cached project report, if any, consulted
	// for the incremental-refresh fast paths.
	Prior *report.Report

	Log core.Logger
}

// Progress is invoked once per file processed, in no particular order,
// for a CLI progress bar (gopkg.in/cheggaaa/pb.v1) to key off of. Nil is
// accepted and means no progress reporting.
type Progress func()

// Build runs the assembler end to end and returns the resulting report.
func Build(opts Options, progress Progress) (*report.Report, error) {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkerCount
	}

	store, err := muncher.LoadDir(opts.RulesDir, opts.Log)
	if err != nil {
		return nil, errors.Wrap(err, "load munchers")
	}

	adapter, err := vcs.Open(opts.ProjectDir)
	if err != nil {
		return nil, errors.Wrap(err, "open repository")
	}

	treeFiles, err := adapter.ListTree("")
	if err != nil {
		return nil, errors.Wrap(err, "list tree")
	}

	logEntries, err := adapter.Log()
	if err != nil {
		return nil, errors.Wrap(err, "read log")
	}
	logHash := vcs.LogHash(logEntries)

	if opts.Prior != nil && opts.Prior.LogHash == logHash {
		return opts.Prior, nil
	}

	treeFileNames := make([]string, 0, len(treeFiles))
	for f := range treeFiles {
		treeFileNames = append(treeFileNames, f)
	}
	sort.Strings(treeFileNames)

	reusable, toProcess := partitionForIncrementalRefresh(opts.Prior, logEntries, treeFileNames)

	var head vcs.LogEntry
	if len(logEntries) > 0 {
		head = logEntries[0]
	}

	results, unprocessed, unknownExt := processFiles(adapter, store, toProcess, treeFileNames, head, opts.Workers, progress)

	r := &report.Report{
		Kind:             report.KindProject,
		PerFileTech:      append(reusable, results...),
		UnprocessedFiles: unprocessed,
		UnknownFileTypes: unknownExt,
		TreeFiles:        treeFileNames,
		IsSingleCommit:   len(toProcess) > 0 && len(reusable) > 0 && isSingleNewCommit(opts.Prior, logEntries),
	}
	r.RecomputeTechSection()

	attachCommitHistory(r, logEntries)

	hashes, err := adapter.HashRemotes()
	if err != nil {
		warnf(opts.Log, "remotes: %v", err)
	} else {
		r.RemoteURLHashes = hashes
	}

	stampIdentity(r, opts.User, opts.Repo)

	return r, nil
}

// partitionForIncrementalRefresh implements §4.F's incremental-refresh
// rule: when prior differs from the current head by exactly one new
// commit, only the files that commit touched are reprocessed; entries
// for files no longer in the tree are dropped. Any other situation (no
// prior, or a history that diverges by more than one commit) falls back
// to reprocessing every tracked file.
func partitionForIncrementalRefresh(prior *report.Report, logEntries []vcs.LogEntry, treeFiles []string) (reusable []*report.Tech, toProcess []string) {
	if prior == nil || !isSingleNewCommit(prior, logEntries) {
		return nil, treeFiles
	}

	changed := make(map[string]struct{})
	for _, p := range logEntries[0].ChangedPaths {
		changed[p] = struct{}{}
	}
	tracked := make(map[string]struct{}, len(treeFiles))
	for _, f := range treeFiles {
		tracked[f] = struct{}{}
	}

	for _, t := range prior.PerFileTech {
		if t.FileName == nil {
			continue
		}
		fn := *t.FileName
		if _, stillTracked := tracked[fn]; !stillTracked {
			continue // removed in the new head commit: dropped, not carried forward
		}
		if _, wasChanged := changed[fn]; wasChanged {
			continue // reprocessed below instead of reused
		}
		reusable = append(reusable, t)
	}

	for _, f := range treeFiles {
		if _, wasChanged := changed[f]; wasChanged {
			toProcess = append(toProcess, f)
		}
	}
	return reusable, toProcess
}

func isSingleNewCommit(prior *report.Report, logEntries []vcs.LogEntry) bool {
	if prior == nil || prior.ReportCommitSHA1 == "" || len(logEntries) == 0 {
		return false
	}
	if logEntries[0].SHA1 == prior.ReportCommitSHA1 {
		return false // nothing new, handled by the log_hash-equality fast path
	}
	return len(logEntries) > 1 && logEntries[1].SHA1 == prior.ReportCommitSHA1
}

type fileResult struct {
	path string
	tech *report.Tech
	ext  string
	err  error
}

// processFiles fans out blob-read + decode + classify (§4.B, §4.C) over
// a tunny worker pool, one task per selected file, and folds the
// results back in on the calling goroutine (§5's task-parallel-over-
// files model: fan-out concurrent, fan-in exclusive).
func processFiles(adapter *vcs.Adapter, store *muncher.Store, paths []string, treeFilesHint []string, head vcs.LogEntry, workers int, progress Progress) (results []*report.Tech, unprocessed []string, unknown *kwc.Set) {
	unknown = kwc.New()

	type job struct {
		path string
		m    *muncher.Muncher
	}
	var jobs []job
	for _, p := range paths {
		m, ok := store.Select(p)
		if !ok {
			unprocessed = append(unprocessed, p)
			if ext := extensionOf(p); ext != "" {
				unknown.Increment(ext, "ext", 1)
			}
			continue
		}
		jobs = append(jobs, job{path: p, m: m})
	}

	if len(jobs) == 0 {
		return nil, unprocessed, unknown
	}

	pool := tunny.NewFunc(workers, func(payload interface{}) interface{} {
		j := payload.(job)
		return runOne(adapter, j.m, j.path, treeFilesHint, head)
	})
	defer pool.Close()

	out := make(chan fileResult, len(jobs))
	for _, j := range jobs {
		j := j
		go func() {
			out <- pool.Process(j).(fileResult)
		}()
	}

	for range jobs {
		res := <-out
		if progress != nil {
			progress()
		}
		if res.err != nil {
			unprocessed = append(unprocessed, res.path)
			if res.ext != "" {
				unknown.Increment(res.ext, "ext", 1)
			}
			continue
		}
		results = append(results, res.tech)
	}
	return results, unprocessed, unknown
}

func runOne(adapter *vcs.Adapter, m *muncher.Muncher, path string, treeFilesHint []string, head vcs.LogEntry) fileResult {
	sha, err := adapter.BlobShaForPath(head.SHA1, path)
	if err != nil {
		return fileResult{path: path, ext: extensionOf(path), err: err}
	}
	raw, err := adapter.ReadBlob(sha)
	if err != nil {
		return fileResult{path: path, ext: extensionOf(path), err: err}
	}
	lines, err := blobreader.Decode(raw)
	if err != nil {
		return fileResult{path: path, ext: extensionOf(path), err: err}
	}

	commit := &fileproc.CommitCoords{SHA1: head.SHA1, DateEpoch: head.DateEpoch, DateISO: head.Date}
	tech := fileproc.Process(lines, m, path, commit, treeFilesHint)
	return fileResult{path: path, tech: tech}
}

func extensionOf(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext == "" || ext == base {
		return ""
	}
	return strings.TrimPrefix(ext, ".")
}

// attachCommitHistory populates date_head/date_init/report_commit_sha1/
// last_commit_author/log_hash/contributors/contributor_git_ids from the
// VCS log (§4.F step 6).
func attachCommitHistory(r *report.Report, logEntries []vcs.LogEntry) {
	r.LogHash = vcs.LogHash(logEntries)
	if len(logEntries) == 0 {
		return
	}

	head := logEntries[0]
	r.ReportCommitSHA1 = head.SHA1
	r.DateHead = head.Date
	r.LastCommitAuthor = head.AuthorNameEmail

	oldest := logEntries[len(logEntries)-1]
	r.DateInit = oldest.Date

	byID := make(map[string]*report.Contributor)
	var order []string
	for i := len(logEntries) - 1; i >= 0; i-- {
		e := logEntries[i]
		id := authorGitID(e.AuthorNameEmail)
		c, ok := byID[id]
		if !ok {
			iso := e.Date
			c = &report.Contributor{GitID: id, DisplayName: displayName(e.AuthorNameEmail), FirstCommit: &iso}
			byID[id] = c
			order = append(order, id)
		}
		iso := e.Date
		c.LastCommit = &iso
	}

	contributors := make([]report.Contributor, 0, len(order))
	ids := make([]string, 0, len(order))
	for _, id := range order {
		contributors = append(contributors, *byID[id])
		ids = append(ids, id)
	}
	sort.Strings(ids)
	r.Contributors = contributors
	r.ContributorGitIDs = ids
}

func authorGitID(nameEmail string) string {
	start := strings.IndexByte(nameEmail, '<')
	end := strings.IndexByte(nameEmail, '>')
	if start >= 0 && end > start {
		return strings.ToLower(strings.TrimSpace(nameEmail[start+1 : end]))
	}
	return strings.ToLower(strings.TrimSpace(nameEmail))
}

func displayName(nameEmail string) string {
	start := strings.IndexByte(nameEmail, '<')
	if start < 0 {
		return nameEmail
	}
	return strings.TrimSpace(nameEmail[:start])
}

func stampIdentity(r *report.Report, user, repo string) {
	r.ReportID = uuid.NewString()
	r.Timestamp = time.Now().UTC().Format(time.RFC3339)
	r.GithubUserName = user
	r.GithubRepoName = repo
	if user != "" && repo != "" {
		name := report.S3Name(user, repo)
		r.ReportS3Name = name
		r.ReportsIncluded = appendUniqueString(r.ReportsIncluded, name)
	}
}

func warnf(log core.Logger, format string, args ...interface{}) {
	if log == nil {
		return
	}
	log.Warnf(format, args...)
}

func appendUniqueString(s []string, v string) []string {
	for _, e := range s {
		if e == v {
			return s
		}
	}
	return append(s, v)
}
