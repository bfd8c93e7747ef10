package main

import (
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	progress "gopkg.in/cheggaaa/pb.v1"

	"github.com/stackmuncher/stm/internal/assembler"
	"github.com/stackmuncher/stm/internal/core"
	"github.com/stackmuncher/stm/internal/report"
)

// rootCmd is the collaborator process interface of §6: it reads the
// rules dir, project dir, user and repo (there is no log-level option),
// drives the assembler, and leaves the result under stm_reports/.
var rootCmd = &cobra.Command{
	Use:   "stm [project dir]",
	Short: "Analyse a Git repository's technology stack.",
	Long: `stm walks a Git repository's HEAD tree, classifies every tracked file
against a directory of muncher rules, and writes a JSON technology report
to stm_reports/ inside the project directory.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRoot,
}

func init() {
	flags := rootCmd.Flags()
	flags.String("rules-dir", "", "Directory of muncher rule files. Overrides "+core.EnvRulesDir+".")
	flags.String("user", "", "GitHub user/org name, used to name the report.")
	flags.String("repo", "", "GitHub repository name, used to name the report.")
	flags.Int("workers", assembler.DefaultWorkerCount, "Number of files to process concurrently.")
	flags.Bool("quiet", false, "Suppress the progress bar.")
}

func runRoot(cmd *cobra.Command, args []string) {
	flags := cmd.Flags()
	log := core.NewLogger()

	projectDir := "."
	if len(args) == 1 {
		projectDir = args[0]
	}
	projectDir, err := homedir.Expand(projectDir)
	if err != nil {
		log.Criticalf("expand project dir: %v", err)
		os.Exit(1)
	}

	rulesFlag, _ := flags.GetString("rules-dir")
	rulesDir, err := core.ResolveRulesDir(rulesFlag, flags.Changed("rules-dir"), "")
	if err != nil {
		log.Criticalf("resolve rules dir: %v", err)
		os.Exit(1)
	}

	user, _ := flags.GetString("user")
	repo, _ := flags.GetString("repo")
	workers, _ := flags.GetInt("workers")
	quiet, _ := flags.GetBool("quiet")

	prior, err := loadPriorReport(projectDir)
	if err != nil {
		log.Warnf("prior report: %v", err)
	}

	var bar *progress.ProgressBar
	var tick assembler.Progress
	if !quiet {
		bar = progress.New(0)
		bar.ShowCounters = true
		bar.Start()
		tick = func() { bar.Increment() }
	}

	r, err := assembler.Build(assembler.Options{
		ProjectDir: projectDir,
		RulesDir:   rulesDir,
		User:       user,
		Repo:       repo,
		Workers:    workers,
		Prior:      prior,
		Log:        log,
	}, tick)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		log.Criticalf("build report: %v", err)
		os.Exit(1)
	}

	if err := savePriorReport(projectDir, r); err != nil {
		log.Errorf("save report: %v", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "report written: %s\n", must(report.ProjectReportPath(projectDir)))
}

func loadPriorReport(projectDir string) (*report.Report, error) {
	path, err := report.ProjectReportPath(projectDir)
	if err != nil {
		return nil, err
	}
	return report.Load(path)
}

func savePriorReport(projectDir string, r *report.Report) error {
	path, err := report.ProjectReportPath(projectDir)
	if err != nil {
		return errors.Wrap(err, "resolve report path")
	}
	return report.Save(path, r)
}

func must(s string, err error) string {
	if err != nil {
		return ""
	}
	return s
}

// Execute runs the root command; called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
