// Package cmd defines the command-line interface for examlens.
package cmd

import (
	"github.com/huangsam/examlens/internal/contract"
	"github.com/huangsam/examlens/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Command-local inputs. Several commands share a flag name, so these are not bound to Viper.
var (
	studentsPath    string
	assignmentsPath string
	beforePath      string
	afterPath       string
	rosterPath      string
	payloadPath     string
	demoTag         string
	useDemo         bool
	matchTarget     schema.MatchTarget
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	analyzeCmd.AddCommand(analyzeSchoolsCmd)
	analyzeCmd.AddCommand(analyzeTeachersCmd)
	analyzeCmd.AddCommand(analyzeTownshipCmd)

	keyCmd.AddCommand(keyExamCmd)
	keyCmd.AddCommand(keyTeachersCmd)

	syncCmd.AddCommand(syncSaveCmd)
	syncCmd.AddCommand(syncLoadCmd)
	syncCmd.AddCommand(syncTeachersCmd)
	syncTeachersCmd.AddCommand(syncTeachersSaveCmd)
	syncTeachersCmd.AddCommand(syncTeachersLoadCmd)

	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeClearCmd)
	storeCmd.AddCommand(storeMigrateCmd)

	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	// Bind all persistent flags of rootCmd to Viper
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to config file")
	pf.String("output", string(schema.TextOut), "Output format: text or csv or json or markdown or parquet")
	pf.String("output-file", "", "Optional path to write output to")
	pf.Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	pf.Int("width", 0, "Terminal width override (0 = auto-detect)")
	pf.String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	pf.IntP("limit", "l", contract.DefaultResultLimit, "Number of ranking rows to display")
	pf.Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	pf.String("subjects", "", "Comma-separated subjects to analyze (default 语文,数学,英语)")
	pf.String("target-school", "", "School whose teachers are analyzed")
	pf.String("subject", "", "Subject for township rankings and reports")
	pf.String("teacher", "", "Teacher followed by the report")
	pf.Int("expected-count", 0, "Student count the report expects for the teacher (0 = skip)")
	pf.Float64("total-excellent", 0, "Override the excellent cutoff of the total score")
	pf.Float64("total-pass", 0, "Override the pass cutoff of the total score")
	pf.String("store-backend", string(schema.SQLiteBackend), "Shared store backend: sqlite or mysql or postgresql or none")
	pf.String("store-db-connect", "", "Database connection string for the shared store (e.g., user:pass@tcp(host:port)/dbname)")
	pf.String("cache-backend", string(schema.SQLiteBackend), "Local cache backend: sqlite or mysql or postgresql or none")
	pf.String("cache-db-connect", "", "Database connection string for the local cache (must differ from store-db-connect)")
	pf.String("timeout", contract.DefaultTimeout.String(), "Timeout for store operations")
	pf.String("log-level", contract.DefaultLogLevel, "Log level: debug or info or warn or error")
	pf.String("metrics-textfile", "", "Write sync metrics in Prometheus text format to this path")
	pf.String("cohort", "", "Enrollment cohort of the exam, e.g. 2023")
	pf.String("grade", "", "Grade of the exam")
	pf.String("year", "", "Year of the exam")
	pf.String("term", "", "Term of the exam, e.g. 上学期")
	pf.String("exam-type", "", "Exam type, e.g. 期中")
	pf.String("exam-name", "", "Exam name (default 标准考试)")
	pf.String("term-id", "", "Term id for teacher assignments, e.g. 2025-2026_上学期_9年级")
	pf.String("user-name", "", "Acting user's name")
	pf.String("user-role", "", "Acting user's role")
	pf.String("user-class", "", "Acting user's class")
	pf.String("user-school", "", "Acting user's school")
	pf.String("default-school", "", "School filled in for rows without one")
	if err := viper.BindPFlags(pf); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	for _, c := range []*cobra.Command{analyzeSchoolsCmd, analyzeTeachersCmd, analyzeTownshipCmd, exportCmd} {
		c.Flags().StringVar(&studentsPath, "students", "", "Score sheet (.xlsx, .csv or .json)")
		_ = c.MarkFlagRequired("students")
	}
	for _, c := range []*cobra.Command{analyzeTeachersCmd, analyzeTownshipCmd, exportCmd, reportCmd} {
		c.Flags().StringVar(&assignmentsPath, "assignments", "", "Teacher assignment table (.yaml, .json or .csv)")
	}
	_ = analyzeTeachersCmd.MarkFlagRequired("assignments")
	_ = analyzeTownshipCmd.MarkFlagRequired("assignments")

	reportCmd.Flags().BoolVar(&useDemo, "demo", false, "Compare the built-in demo exams")
	reportCmd.Flags().StringVar(&beforePath, "before", "", "Score sheet of the earlier exam")
	reportCmd.Flags().StringVar(&afterPath, "after", "", "Score sheet of the later exam")

	demoCmd.Flags().StringVar(&demoTag, "tag", "期中", "Demo exam to generate: 期中 or 期末")

	matchCmd.Flags().StringVar(&rosterPath, "roster", "", "Roster or score sheet to search")
	matchCmd.Flags().StringVar(&matchTarget.Name, "name", "", "Student name (defaults to --user-name)")
	matchCmd.Flags().StringVar(&matchTarget.Class, "class", "", "Class id (defaults to --user-class)")
	matchCmd.Flags().StringVar(&matchTarget.School, "school", "", "School (defaults to --user-school)")
	_ = matchCmd.MarkFlagRequired("roster")

	syncSaveCmd.Flags().StringVar(&payloadPath, "payload", "", "JSON snapshot to upload")
	_ = syncSaveCmd.MarkFlagRequired("payload")
	syncLoadCmd.Flags().StringVar(&payloadPath, "payload", "", "Optional path to write the downloaded snapshot to")
	syncTeachersSaveCmd.Flags().StringVar(&assignmentsPath, "assignments", "", "Teacher assignment table (.yaml, .json or .csv)")
	_ = syncTeachersSaveCmd.MarkFlagRequired("assignments")

	// Bind all flags of storeMigrateCmd to Viper
	storeMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(storeMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding store migrate flags", err)
	}
}
