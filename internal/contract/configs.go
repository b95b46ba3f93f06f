package contract

import (
	"fmt"
	"maps"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/huangsam/examlens/schema"
)

// Default values for configuration.
const (
	DefaultResultLimit = 25
	MaxResultLimit     = 1000
	DefaultPrecision   = 2
	DefaultTimeout     = 30 * time.Second
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// ThresholdRawInput holds one subject's cutoffs from the YAML config file.
type ThresholdRawInput struct {
	Excellent *float64 `mapstructure:"excellent"`
	Pass      *float64 `mapstructure:"pass"`
}

// Config holds the runtime configuration.
// This struct remains the "final, validated" config.
type Config struct {
	Output      schema.OutputMode
	OutputFile  string
	Precision   int
	Width       int // Terminal width override (0 = auto-detect)
	UseColors   bool
	ResultLimit int
	Workers     int

	Subjects      []string
	Thresholds    schema.ThresholdTable
	TargetSchool  string
	Subject       string
	Teacher       string
	ExpectedCount int

	StoreBackend   schema.DatabaseBackend
	StoreDBConnect string // Please use env var as this is plaintext

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	Timeout         time.Duration
	LogLevel        string
	MetricsTextfile string

	// Sync is the metadata handed to the reconciler for every operation.
	Sync schema.SyncContext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Output          string `mapstructure:"output"`
	OutputFile      string `mapstructure:"output-file"`
	Precision       int    `mapstructure:"precision"`
	Width           int    `mapstructure:"width"`
	Color           string `mapstructure:"color"`
	Limit           int    `mapstructure:"limit"`
	Workers         int    `mapstructure:"workers"`
	Subjects        string `mapstructure:"subjects"`
	StoreBackend    string `mapstructure:"store-backend"`
	StoreDBConnect  string `mapstructure:"store-db-connect"`
	CacheBackend    string `mapstructure:"cache-backend"`
	CacheDBConnect  string `mapstructure:"cache-db-connect"`
	Timeout         string `mapstructure:"timeout"`
	LogLevel        string `mapstructure:"log-level"`
	MetricsTextfile string `mapstructure:"metrics-textfile"`

	// --- Analysis targets ---
	TargetSchool  string `mapstructure:"target-school"`
	Subject       string `mapstructure:"subject"`
	Teacher       string `mapstructure:"teacher"`
	ExpectedCount int    `mapstructure:"expected-count"`

	// --- Exam metadata ---
	Cohort   string `mapstructure:"cohort"`
	Grade    string `mapstructure:"grade"`
	Year     string `mapstructure:"year"`
	Term     string `mapstructure:"term"`
	ExamType string `mapstructure:"exam-type"`
	ExamName string `mapstructure:"exam-name"`
	TermID   string `mapstructure:"term-id"`

	// --- Acting user ---
	UserName      string `mapstructure:"user-name"`
	UserRole      string `mapstructure:"user-role"`
	UserClass     string `mapstructure:"user-class"`
	UserSchool    string `mapstructure:"user-school"`
	DefaultSchool string `mapstructure:"default-school"`

	// --- Cutoffs from config file ---
	Thresholds     map[string]ThresholdRawInput `mapstructure:"thresholds"`
	TotalExcellent float64                      `mapstructure:"total-excellent"`
	TotalPass      float64                      `mapstructure:"total-pass"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Subjects != nil {
		clone.Subjects = make([]string, len(c.Subjects))
		copy(clone.Subjects, c.Subjects)
	}
	if c.Thresholds != nil {
		clone.Thresholds = make(schema.ThresholdTable, len(c.Thresholds))
		maps.Copy(clone.Thresholds, c.Thresholds)
	}
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processThresholds(cfg, input); err != nil {
		return err
	}
	if err := processSyncContext(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates store and cache backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Store Backend Validation ---
	cfg.StoreBackend = schema.DatabaseBackend(strings.ToLower(input.StoreBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.StoreBackend]; !ok {
		return fmt.Errorf("invalid store backend '%s'. must be sqlite, mysql, postgresql, none", input.StoreBackend)
	}
	cfg.StoreDBConnect = input.StoreDBConnect
	if err := ValidateDatabaseConnectionString(cfg.StoreBackend, cfg.StoreDBConnect); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	// For SQLite, resolve to actual file paths to catch default path conflicts
	if cfg.StoreBackend == schema.SQLiteBackend && cfg.CacheBackend == schema.SQLiteBackend {
		storePath := cfg.StoreDBConnect
		if storePath == "" {
			storePath = GetStoreDBFilePath()
		}
		cachePath := cfg.CacheDBConnect
		if cachePath == "" {
			cachePath = GetCacheDBFilePath()
		}
		if storePath == cachePath {
			return fmt.Errorf("store and cache must use different SQLite database files. Both resolve to %q", storePath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates the output and analysis fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.TargetSchool = strings.TrimSpace(input.TargetSchool)
	cfg.Subject = strings.TrimSpace(input.Subject)
	cfg.Teacher = strings.TrimSpace(input.Teacher)
	cfg.MetricsTextfile = input.MetricsTextfile

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.Precision < 1 || input.Precision > 4 {
		return fmt.Errorf("precision must be between 1 and 4 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, markdown, parquet", cfg.Output)
	}

	if input.ExpectedCount < 0 {
		return fmt.Errorf("expected-count cannot be negative (received %d)", input.ExpectedCount)
	}
	cfg.ExpectedCount = input.ExpectedCount

	cfg.Subjects = ParseSubjects(input.Subjects)
	if len(cfg.Subjects) == 0 {
		cfg.Subjects = append([]string(nil), schema.DefaultSubjects...)
	}

	cfg.Timeout = DefaultTimeout
	if strings.TrimSpace(input.Timeout) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(input.Timeout))
		if err != nil {
			return fmt.Errorf("invalid timeout '%s': %w", input.Timeout, err)
		}
		if d < 0 {
			return fmt.Errorf("timeout cannot be negative (received %s)", d)
		}
		cfg.Timeout = d
	}

	if _, err := ParseLogLevel(input.LogLevel); err != nil {
		return err
	}
	cfg.LogLevel = input.LogLevel
	return nil
}

// processThresholds builds the cutoff table: defaults for every analysed subject,
// overridden by the config file, plus an optional total override.
func processThresholds(cfg *Config, input *ConfigRawInput) error {
	v := validator.New()
	table := make(schema.ThresholdTable, len(cfg.Subjects)+1)
	for _, sub := range cfg.Subjects {
		table[sub] = schema.SubjectThreshold{Excellent: schema.DefaultExcellentCutoff, Pass: schema.DefaultPassCutoff}
	}

	for sub, raw := range input.Thresholds {
		th := table.For(sub)
		if raw.Excellent != nil {
			th.Excellent = *raw.Excellent
		}
		if raw.Pass != nil {
			th.Pass = *raw.Pass
		}
		if err := v.Struct(th); err != nil {
			return fmt.Errorf("invalid thresholds for %s: pass must be between 0 and excellent: %w", sub, err)
		}
		table[sub] = th
	}

	if input.TotalExcellent > 0 || input.TotalPass > 0 {
		total := table.Total(cfg.Subjects)
		if input.TotalExcellent > 0 {
			total.Excellent = input.TotalExcellent
		}
		if input.TotalPass > 0 {
			total.Pass = input.TotalPass
		}
		if err := v.Struct(total); err != nil {
			return fmt.Errorf("invalid total thresholds: %w", err)
		}
		table[schema.TotalSubject] = total
	}

	cfg.Thresholds = table
	return nil
}

// processSyncContext collects the exam metadata and acting user for sync operations.
func processSyncContext(cfg *Config, input *ConfigRawInput) error {
	role := schema.Role(strings.ToLower(strings.TrimSpace(input.UserRole)))
	if role != "" {
		if _, ok := schema.ValidRoles[role]; !ok {
			return fmt.Errorf("invalid user role '%s'", input.UserRole)
		}
	}
	cfg.Sync = schema.SyncContext{
		Exam: schema.ExamMeta{
			CohortID: strings.TrimSpace(input.Cohort),
			Grade:    strings.TrimSpace(input.Grade),
			Year:     strings.TrimSpace(input.Year),
			Term:     strings.TrimSpace(input.Term),
			ExamType: strings.TrimSpace(input.ExamType),
			ExamName: strings.TrimSpace(input.ExamName),
		},
		TermID:   strings.TrimSpace(input.TermID),
		CohortID: strings.TrimSpace(input.Cohort),
		User: schema.UserInfo{
			Name:   strings.TrimSpace(input.UserName),
			Role:   role,
			Class:  strings.TrimSpace(input.UserClass),
			School: strings.TrimSpace(input.UserSchool),
		},
		DefaultSchool: strings.TrimSpace(input.DefaultSchool),
	}
	return nil
}
