package report

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"

	"github.com/stackmuncher/stm/internal/core"
)

// ReportsDirName is the on-disk cache directory under the project
// directory, per §6's filesystem layout.
const ReportsDirName = "stm_reports"

const (
	projectReportFile = "project_report.json"
	devReportFile     = "contributor_report.json"
)

// ContributorReportFile names the per-contributor cache file for gitID,
// hashed so arbitrary emails/names are filesystem-safe (§6).
func ContributorReportFile(gitID string) string {
	return fmt.Sprintf("contributor_report_%s.json", hashGitID(gitID))
}

func hashGitID(gitID string) string {
	sum := sha1.Sum([]byte(gitID))
	return fmt.Sprintf("%x", sum)
}

// ProjectReportPath/DevReportPath/ContributorReportPath resolve the
// on-disk location of each cached artifact under projectDir, expanding
// "~" the way the rest of this module's paths do. A relative projectDir
// yields a relative path.
func ProjectReportPath(projectDir string) (string, error) {
	return reportsSubPath(projectDir, projectReportFile)
}

func DevReportPath(projectDir string) (string, error) {
	return reportsSubPath(projectDir, devReportFile)
}

func ContributorReportPath(projectDir, gitID string) (string, error) {
	return reportsSubPath(projectDir, ContributorReportFile(gitID))
}

func reportsSubPath(projectDir, name string) (string, error) {
	dir, err := homedir.Expand(projectDir)
	if err != nil {
		return "", errors.Wrap(err, "expand project dir")
	}
	return filepath.Join(dir, ReportsDirName, name), nil
}

// S3Name renders the object-name scheme of §4.H: "<user>/<repo>.report"
// for a project report, "<user>/<repo>/<contributor_hash>.report" for a
// contributor report.
func S3Name(user, repo string) string {
	return fmt.Sprintf("%s/%s.report", user, repo)
}

func ContributorS3Name(user, repo, gitID string) string {
	return fmt.Sprintf("%s/%s/%s.report", user, repo, hashGitID(gitID))
}

// Save serializes r as indented JSON and writes it to path, creating
// parent directories as needed (§4.H).
func Save(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal report")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create reports directory")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write report")
	}
	return nil
}

// Load reads and deserializes the report at path. A missing file is not
// an error: it returns (nil, nil), the "no prior report" case §4.H and
// §7 require callers to treat identically to a fresh run. A present but
// unparseable file returns core.ErrCacheCorrupt so the caller can log it
// before proceeding as if no cache existed, per §7's propagation policy.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read report")
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrapf(core.ErrCacheCorrupt, "parse %s: %v", path, err)
	}
	return &r, nil
}
