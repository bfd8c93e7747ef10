// Package vcs implements the VCS adapter surface of §4.E on top of
// go-git, the way the teacher's plumbing package speaks to the repository
// object store directly rather than shelling out.
package vcs

import (
	"crypto/sha1"
	"fmt"
	"io"
	"io/ioutil"
	"regexp"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pkg/errors"

	"github.com/stackmuncher/stm/internal/core"
)

// Adapter wraps one open repository, the way BlobCache wraps a
// *git.Repository in the teacher's plumbing package.
type Adapter struct {
	repo *git.Repository
}

// Open opens the repository rooted at projectDir.
func Open(projectDir string) (*Adapter, error) {
	repo, err := git.PlainOpen(projectDir)
	if err != nil {
		return nil, errors.Wrap(core.ErrVcsUnavailable, err.Error())
	}
	return &Adapter{repo: repo}, nil
}

// FromRepository wraps an already-open repository, used by tests against
// in-memory fixtures built with internal/vcs/vcstest.
func FromRepository(repo *git.Repository) *Adapter {
	return &Adapter{repo: repo}
}

func (a *Adapter) resolveCommit(sha string) (*object.Commit, error) {
	if sha == "" {
		head, err := a.repo.Head()
		if err != nil {
			return nil, errors.Wrap(core.ErrVcsUnavailable, err.Error())
		}
		return a.repo.CommitObject(head.Hash())
	}
	return a.repo.CommitObject(plumbing.NewHash(sha))
}

// ListTree returns every path tracked at commit (HEAD when empty).
func (a *Adapter) ListTree(commitSHA string) (map[string]struct{}, error) {
	commit, err := a.resolveCommit(commitSHA)
	if err != nil {
		return nil, errors.Wrap(core.ErrVcsUnavailable, err.Error())
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, errors.Wrap(core.ErrVcsUnavailable, err.Error())
	}

	paths := make(map[string]struct{})
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()
	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(core.ErrVcsUnavailable, err.Error())
		}
		if !entry.Mode.IsFile() {
			continue
		}
		paths[name] = struct{}{}
	}
	return paths, nil
}

// BlobShaForPath resolves path's blob hash at commit (HEAD when empty).
func (a *Adapter) BlobShaForPath(commitSHA, path string) (string, error) {
	commit, err := a.resolveCommit(commitSHA)
	if err != nil {
		return "", errors.Wrap(core.ErrVcsUnavailable, err.Error())
	}
	tree, err := commit.Tree()
	if err != nil {
		return "", errors.Wrap(core.ErrVcsUnavailable, err.Error())
	}
	entry, err := tree.FindEntry(path)
	if err != nil {
		return "", errors.Wrapf(core.ErrBlobMissing, "%s: %v", path, err)
	}
	return entry.Hash.String(), nil
}

// ReadBlob materializes the raw bytes of the blob identified by sha.
func (a *Adapter) ReadBlob(sha string) ([]byte, error) {
	blob, err := a.repo.BlobObject(plumbing.NewHash(sha))
	if err != nil {
		return nil, errors.Wrapf(core.ErrBlobMissing, "%s: %v", sha, err)
	}
	reader, err := blob.Reader()
	if err != nil {
		return nil, errors.Wrapf(core.ErrBlobMissing, "%s: %v", sha, err)
	}
	defer reader.Close()
	data, err := ioutil.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrapf(core.ErrBlobMissing, "%s: %v", sha, err)
	}
	return data, nil
}

// LogEntry is one commit in Log's newest-first sequence (§4.E).
type LogEntry struct {
	SHA1            string
	Date            string
	DateEpoch       int64
	AuthorNameEmail string
	ParentSHA1s     []string
	ChangedPaths    []string
}

// Log walks the commit history reachable from HEAD, newest first.
func (a *Adapter) Log() ([]LogEntry, error) {
	head, err := a.repo.Head()
	if err != nil {
		return nil, errors.Wrap(core.ErrVcsUnavailable, err.Error())
	}
	iter, err := a.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, errors.Wrap(core.ErrVcsUnavailable, err.Error())
	}
	defer iter.Close()

	var entries []LogEntry
	err = iter.ForEach(func(c *object.Commit) error {
		var parents []string
		for _, p := range c.ParentHashes {
			parents = append(parents, p.String())
		}
		entries = append(entries, LogEntry{
			SHA1:            c.Hash.String(),
			Date:            c.Author.When.UTC().Format(time.RFC3339),
			DateEpoch:       c.Author.When.UTC().Unix(),
			AuthorNameEmail: fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email),
			ParentSHA1s:     parents,
			ChangedPaths:    changedPaths(c),
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(core.ErrVcsUnavailable, err.Error())
	}
	return entries, nil
}

func changedPaths(c *object.Commit) []string {
	if c.NumParents() == 0 {
		return nil
	}
	parent, err := c.Parent(0)
	if err != nil {
		return nil
	}
	patch, err := parent.Patch(c)
	if err != nil {
		return nil
	}
	var paths []string
	for _, fp := range patch.FilePatches() {
		from, to := fp.Files()
		if to != nil {
			paths = append(paths, to.Path())
		} else if from != nil {
			paths = append(paths, from.Path())
		}
	}
	return paths
}

// remoteURLPattern matches the URL token in one line of `git remote -v`
// output: §6 mandates this exact extraction regex.
var remoteURLPattern = regexp.MustCompile(`(?i)\s(http.*)\(`)

// Remotes returns the ordered, deduplicated remote URLs configured on
// the repository, normalized (lowercased, trimmed) per §4.E.
func (a *Adapter) Remotes() ([]string, error) {
	remotes, err := a.repo.Remotes()
	if err != nil {
		return nil, errors.Wrap(core.ErrVcsUnavailable, err.Error())
	}

	var urls []string
	seen := make(map[string]struct{})
	for _, r := range remotes {
		for _, u := range r.Config().URLs {
			line := fmt.Sprintf(" %s (fetch)", u)
			m := remoteURLPattern.FindStringSubmatch(line)
			normalized := strings.ToLower(strings.TrimSpace(u))
			if len(m) == 2 {
				normalized = strings.ToLower(strings.TrimSpace(m[1]))
			}
			if _, ok := seen[normalized]; ok {
				continue
			}
			seen[normalized] = struct{}{}
			urls = append(urls, normalized)
		}
	}
	return urls, nil
}

// HashRemotes returns the SHA-1 hex digest of each normalized remote URL.
func (a *Adapter) HashRemotes() ([]string, error) {
	urls, err := a.Remotes()
	if err != nil {
		return nil, err
	}
	hashes := make([]string, 0, len(urls))
	for _, u := range urls {
		sum := sha1.Sum([]byte(u))
		hashes = append(hashes, fmt.Sprintf("%x", sum))
	}
	return hashes, nil
}

// LogHash is SHA1(concat(sha1 for sha1 in log)) in log order (§4.F).
func LogHash(entries []LogEntry) string {
	h := sha1.New()
	for _, e := range entries {
		io.WriteString(h, e.SHA1)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
