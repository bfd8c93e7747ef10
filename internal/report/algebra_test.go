package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackmuncher/stm/internal/kwc"
)

func fileTech(language, muncherName, fileName string, files, codeLines int) *Tech {
	t := NewFileTech(language, muncherName, fileName, 1)
	t.Counts.Files = files
	t.Counts.CodeLines = codeLines
	t.Counts.TotalLines = codeLines
	return t
}

func TestMergeTechRecordSumsCountersForMatchingLanguage(t *testing.T) {
	r := &Report{}
	r.MergeTechRecord(fileTech("C#", "csharp", "a.cs", 2, 10))
	r.MergeTechRecord(fileTech("C#", "csharp", "b.cs", 3, 20))

	require.Len(t, r.Tech, 1)
	assert.Equal(t, 5, r.Tech[0].Files)
	assert.Equal(t, 30, r.Tech[0].CodeLines)
}

func TestRecomputeTechSectionIsIdempotent(t *testing.T) {
	r := &Report{
		PerFileTech: []*Tech{
			fileTech("Go", "go", "a.go", 1, 5),
			fileTech("Go", "go", "b.go", 1, 7),
			fileTech("Python", "py", "c.py", 1, 3),
		},
	}
	r.RecomputeTechSection()
	first := r.Tech

	second := &Report{PerFileTech: r.PerFileTech}
	second.RecomputeTechSection()

	require.Len(t, first, 2)
	require.Len(t, second.Tech, 2)
	assert.Equal(t, first[0].Language, second.Tech[0].Language)
	assert.Equal(t, first[0].CodeLines, second.Tech[0].CodeLines)
	assert.Equal(t, first[1].Language, second.Tech[1].Language)
	assert.Equal(t, first[1].CodeLines, second.Tech[1].CodeLines)
}

func TestMergeTechRecordCommutative(t *testing.T) {
	a := fileTech("C#", "csharp", "a.cs", 2, 10)
	b := fileTech("C#", "csharp", "b.cs", 3, 20)

	r1 := &Report{}
	r1.MergeTechRecord(a.Clone())
	r1.MergeTechRecord(b.Clone())

	r2 := &Report{}
	r2.MergeTechRecord(b.Clone())
	r2.MergeTechRecord(a.Clone())

	require.Len(t, r1.Tech, 1)
	require.Len(t, r2.Tech, 1)
	assert.Equal(t, r1.Tech[0].Files, r2.Tech[0].Files)
	assert.Equal(t, r1.Tech[0].CodeLines, r2.Tech[0].CodeLines)
}

func TestMergeTechRecordLiteralScenario(t *testing.T) {
	r := &Report{}
	r.MergeTechRecord(fileTech("C#", "csharp", "a.cs", 2, 0))
	r.MergeTechRecord(fileTech("C#", "csharp", "b.cs", 3, 0))

	require.Len(t, r.Tech, 1)
	assert.Equal(t, "C#", r.Tech[0].Language)
	assert.Equal(t, 5, r.Tech[0].Files)
}

func TestDeriveKwSplitsNonIdentifierAndCamelCase(t *testing.T) {
	refs := kwc.New()
	refs.Increment("HttpClient", "ref", 2)
	refs.Increment("foo.bar", "ref", 1)

	out := deriveKw(refs)
	require.NotNil(t, out)

	byToken := map[string]int{}
	for _, e := range out.Entries() {
		byToken[e.Token] = e.Count
	}
	assert.Equal(t, 2, byToken["Http"])
	assert.Equal(t, 2, byToken["Client"])
	assert.Equal(t, 1, byToken["foo"])
	assert.Equal(t, 1, byToken["bar"])
}

func TestDeriveKwNilForEmptySet(t *testing.T) {
	assert.Nil(t, deriveKw(nil))
	assert.Nil(t, deriveKw(kwc.New()))
}

type fakeLogger struct{ warnings []string }

func (f *fakeLogger) Warnf(format string, args ...interface{}) {
	f.warnings = append(f.warnings, format)
}

func TestMergeNilMasterReturnsOtherWithRecompute(t *testing.T) {
	other := &Report{
		Tech: []*Tech{fileTech("Go", "go", "a.go", 1, 5)},
	}
	other.Tech[0].Refs.Increment("HttpClient", "ref", 1)

	merged := Merge(nil, other, nil)
	require.Len(t, merged.Tech, 1)
	assert.NotNil(t, merged.Tech[0].RefsKw)
}

func TestMergeAccumulatesUnknownFileTypesAndReportsIncluded(t *testing.T) {
	master := &Report{
		Tech:              []*Tech{fileTech("Go", "go", "a.go", 1, 5)},
		UnknownFileTypes:  kwc.New(),
		DateHead:          "2024-01-01T00:00:00Z",
		DateInit:          "2023-01-01T00:00:00Z",
		ContributorGitIDs: []string{"alice"},
	}
	master.Tech[0].ResetFileAndCommitInfo() // a report's tech rows are per-language
	master.UnknownFileTypes.Increment(".xyz", "ext", 1)

	other := &Report{
		Tech:              []*Tech{fileTech("Go", "go", "b.go", 1, 7)},
		UnknownFileTypes:  kwc.New(),
		ReportS3Name:      "bob/repo.report",
		DateHead:          "2024-06-01T00:00:00Z",
		DateInit:          "2022-01-01T00:00:00Z",
		ContributorGitIDs: []string{"bob"},
	}
	other.UnknownFileTypes.Increment(".abc", "ext", 2)

	log := &fakeLogger{}
	merged := Merge(master, other, log)

	require.Len(t, merged.Tech, 1)
	assert.Equal(t, 12, merged.Tech[0].CodeLines)
	assert.Equal(t, 2, merged.UnknownFileTypes.Len())
	assert.Contains(t, merged.ReportsIncluded, "bob/repo.report")
	assert.Equal(t, "2024-06-01T00:00:00Z", merged.DateHead)
	assert.Equal(t, "2022-01-01T00:00:00Z", merged.DateInit)
	assert.ElementsMatch(t, []string{"alice", "bob"}, merged.ContributorGitIDs)
}

func TestMergeContributorReportsRecencyWins(t *testing.T) {
	epochA := int64(100)
	epochB := int64(200)

	a := fileTech("Go", "go", "a.go", 1, 1)
	a.CommitDateEpoch = &epochA
	a.CodeLines = 1

	b := fileTech("Go", "go", "a.go", 1, 1)
	b.CommitDateEpoch = &epochB
	b.CodeLines = 99

	reportA := &Report{PerFileTech: []*Tech{a}}
	reportB := &Report{PerFileTech: []*Tech{b}}

	reportA.MergeContributorReports(reportB, "u")

	require.Len(t, reportA.PerFileTech, 1)
	assert.EqualValues(t, 200, *reportA.PerFileTech[0].CommitDateEpoch)
	assert.Equal(t, 99, reportA.PerFileTech[0].CodeLines)
	assert.Contains(t, reportA.GitIDsIncluded, "u")
}

func TestMergeContributorReportsKeepsNewerWhenOtherIsOlder(t *testing.T) {
	epochNewer := int64(500)
	epochOlder := int64(50)

	newer := fileTech("Go", "go", "a.go", 1, 1)
	newer.CommitDateEpoch = &epochNewer
	newer.CodeLines = 10

	older := fileTech("Go", "go", "a.go", 1, 1)
	older.CommitDateEpoch = &epochOlder
	older.CodeLines = 1

	reportA := &Report{PerFileTech: []*Tech{newer}}
	reportB := &Report{PerFileTech: []*Tech{older}}

	reportA.MergeContributorReports(reportB, "u")

	require.Len(t, reportA.PerFileTech, 1)
	assert.Equal(t, 10, reportA.PerFileTech[0].CodeLines)
}

func TestAbridgeClearsPerFileDetail(t *testing.T) {
	r := &Report{
		PerFileTech: []*Tech{fileTech("Go", "go", "a.go", 1, 1)},
		Contributors: []Contributor{
			{GitID: "alice", TouchedFiles: []string{"a.go", "b.go"}},
		},
	}
	r.Abridge()
	assert.Nil(t, r.PerFileTech)
	assert.Nil(t, r.Contributors[0].TouchedFiles)
}
