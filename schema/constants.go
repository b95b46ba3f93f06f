package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the SQL backend for the shared store and the local cache.
	DatabaseBackend string

	// EntityKind distinguishes teachers from schools in a township ranking.
	EntityKind string

	// Role is the role of the acting user.
	Role string

	// MatchStrategy names the tier that produced a self-lookup match.
	MatchStrategy string

	// SyncStatus is the outcome of a sync operation that did not fail.
	SyncStatus string
)

// All output modes supported.
const (
	CSVOut      OutputMode = "csv"
	TextOut     OutputMode = "text" // default
	JSONOut     OutputMode = "json"
	MarkdownOut OutputMode = "markdown"
	ParquetOut  OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// Kinds of ranking entries.
const (
	TeacherKind EntityKind = "teacher"
	SchoolKind  EntityKind = "school"
)

// Roles known to the sync layer. Only teacher-like roles change behavior.
const (
	AdminRole         Role = "admin"
	DirectorRole      Role = "director"
	GradeDirectorRole Role = "grade_director"
	ClassTeacherRole  Role = "class_teacher"
	TeacherRole       Role = "teacher"
	ParentRole        Role = "parent"
	GuestRole         Role = "guest"
)

// Self-lookup strategies, in tier order.
const (
	NameClassMatch   MatchStrategy = "name+class"
	NameOnlyMatch    MatchStrategy = "name-only"
	ClassUniqueMatch MatchStrategy = "class-unique"
	NoMatch          MatchStrategy = "none"
)

// Sync outcomes.
const (
	SyncSaved    SyncStatus = "saved"
	SyncFound    SyncStatus = "found"
	SyncNotFound SyncStatus = "not_found"
)

// Default subjects and cutoffs used when no configuration overrides them.
const (
	SubjectChinese = "语文"
	SubjectMath    = "数学"
	SubjectEnglish = "英语"

	// TotalSubject is the synthetic subject holding per-student sums.
	TotalSubject = "total"

	DefaultExcellentCutoff = 90.0
	DefaultPassCutoff      = 72.0

	// LowCutoffRatio scales the pass cutoff into the low-score cutoff.
	LowCutoffRatio = 0.6

	// MaxPlausibleScore bounds any single score, totals included.
	MaxPlausibleScore = 1000.0
)

// DefaultSubjects lists the subjects analysed when none are configured.
var DefaultSubjects = []string{SubjectChinese, SubjectMath, SubjectEnglish}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:      {},
	TextOut:     {},
	JSONOut:     {},
	MarkdownOut: {},
	ParquetOut:  {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidRoles lists all known roles.
var ValidRoles = map[Role]struct{}{
	AdminRole:         {},
	DirectorRole:      {},
	GradeDirectorRole: {},
	ClassTeacherRole:  {},
	TeacherRole:       {},
	ParentRole:        {},
	GuestRole:         {},
}

// IsTeacherLike reports whether the role searches assignment data by its own name.
func (r Role) IsTeacherLike() bool {
	return r == TeacherRole || r == ClassTeacherRole
}

// DefaultThresholds returns the cutoff table for the default subjects.
func DefaultThresholds() ThresholdTable {
	table := make(ThresholdTable, len(DefaultSubjects))
	for _, sub := range DefaultSubjects {
		table[sub] = SubjectThreshold{Excellent: DefaultExcellentCutoff, Pass: DefaultPassCutoff}
	}
	return table
}
