package assembler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitOpts(name, email string, when time.Time) *git.CommitOptions {
	return &git.CommitOptions{
		Author: &object.Signature{Name: name, Email: email, When: when},
	}
}

func writeMunchers(t *testing.T, dir string) {
	t.Helper()
	goMuncher := `{
		"muncher_name": "go",
		"language": "Go",
		"line_comments": ["^\\s*//"],
		"refs": ["^\\s*import\\s+\"([^\"]+)\""]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.json"), []byte(goMuncher), 0o644))
}

func initRepoOnDisk(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	write := func(name, contents string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
		_, err := wt.Add(name)
		require.NoError(t, err)
	}
	write("main.go", "package main\n\nfunc main() {}\n")
	_, err = wt.Commit("init", commitOpts("Alice", "alice@example.com", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	write("util.go", "package main\n\n// helper\nfunc helper() {}\n")
	_, err = wt.Commit("add util", commitOpts("Bob", "bob@example.com", time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	return dir
}

func TestBuildProducesReportWithTechAndContributors(t *testing.T) {
	rulesDir := t.TempDir()
	writeMunchers(t, rulesDir)
	projectDir := initRepoOnDisk(t)

	r, err := Build(Options{
		ProjectDir: projectDir,
		RulesDir:   rulesDir,
		User:       "alice",
		Repo:       "demo",
		Workers:    2,
	}, nil)
	require.NoError(t, err)

	require.Len(t, r.Tech, 1)
	assert.Equal(t, "Go", r.Tech[0].Language)
	assert.Equal(t, 2, r.Tech[0].Files)

	assert.NotEmpty(t, r.ReportID)
	assert.NotEmpty(t, r.LogHash)
	assert.Equal(t, "alice/demo.report", r.ReportS3Name)
	assert.ElementsMatch(t, []string{"alice@example.com", "bob@example.com"}, r.ContributorGitIDs)
	assert.NotEmpty(t, r.DateHead)
	assert.NotEmpty(t, r.DateInit)
}

func TestBuildReusesCachedReportWhenLogHashUnchanged(t *testing.T) {
	rulesDir := t.TempDir()
	writeMunchers(t, rulesDir)
	projectDir := initRepoOnDisk(t)

	first, err := Build(Options{ProjectDir: projectDir, RulesDir: rulesDir}, nil)
	require.NoError(t, err)

	second, err := Build(Options{ProjectDir: projectDir, RulesDir: rulesDir, Prior: first}, nil)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestBuildUnknownExtensionGoesToUnprocessed(t *testing.T) {
	rulesDir := t.TempDir()
	writeMunchers(t, rulesDir)
	projectDir := t.TempDir()
	repo, err := git.PlainInit(projectDir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "data.xyz"), []byte("binary-ish"), 0o644))
	_, err = wt.Add("data.xyz")
	require.NoError(t, err)
	_, err = wt.Commit("add data", commitOpts("Alice", "alice@example.com", time.Now()))
	require.NoError(t, err)

	r, err := Build(Options{ProjectDir: projectDir, RulesDir: rulesDir}, nil)
	require.NoError(t, err)
	assert.Contains(t, r.UnprocessedFiles, "data.xyz")
	count, ok := r.UnknownFileTypes.Get("xyz")
	require.True(t, ok)
	assert.Equal(t, 1, count)
}

func TestExtensionOf(t *testing.T) {
	assert.Equal(t, "go", extensionOf("a/b/main.go"))
	assert.Equal(t, "", extensionOf(".gitignore"))
	assert.Equal(t, "", extensionOf("Makefile"))
}
