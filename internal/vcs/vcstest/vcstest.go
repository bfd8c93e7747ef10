// Package vcstest builds small in-memory git repositories for exercising
// internal/vcs, mirroring the teacher's internal/test repository helper.
package vcstest

import (
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Commit describes a set of file writes plus a commit on top of them.
type Commit struct {
	Files   map[string]string // path -> contents
	Message string
	Author  string
	Email   string
	When    time.Time
}

// New builds an in-memory repository and applies commits in order,
// returning the repository and the hash of each commit, oldest first.
func New(commits []Commit) (*git.Repository, []string, error) {
	fs := memfs.New()
	repo, err := git.Init(memory.NewStorage(), fs)
	if err != nil {
		return nil, nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, nil, err
	}

	var hashes []string
	for _, c := range commits {
		for path, contents := range c.Files {
			f, err := fs.Create(path)
			if err != nil {
				return nil, nil, err
			}
			if _, err := f.Write([]byte(contents)); err != nil {
				return nil, nil, err
			}
			if err := f.Close(); err != nil {
				return nil, nil, err
			}
			if _, err := wt.Add(path); err != nil {
				return nil, nil, err
			}
		}
		hash, err := wt.Commit(c.Message, &git.CommitOptions{
			Author: &object.Signature{Name: c.Author, Email: c.Email, When: c.When},
		})
		if err != nil {
			return nil, nil, err
		}
		hashes = append(hashes, hash.String())
	}
	return repo, hashes, nil
}
