package contract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// Check label constants.
const (
	PassedValue = "PASS"
	FailedValue = "FAIL"
	Unranked    = "-"
)

// Color variables for console output.
var (
	TopColor    = color.New(color.FgGreen, color.Bold) // TopColor marks first place.
	BottomColor = color.New(color.FgRed)               // BottomColor marks last place.
	PassColor   = color.New(color.FgGreen)             // PassColor marks a passed check.
	FailColor   = color.New(color.FgRed, color.Bold)   // FailColor marks a failed check.
	NoticeColor = color.New(color.FgCyan)              // NoticeColor marks informational notices.
	WarnColor   = color.New(color.FgYellow)            // WarnColor marks warnings.
)

// GetPlainRank returns a rank as text, or Unranked for zero.
func GetPlainRank(rank int) string {
	if rank <= 0 {
		return Unranked
	}
	return strconv.Itoa(rank)
}

// GetColorRank colors first place green and last place red out of total ranked entries.
func GetColorRank(rank, total int) string {
	text := GetPlainRank(rank)
	switch {
	case rank == 1:
		return TopColor.Sprint(text)
	case rank > 1 && rank == total:
		return BottomColor.Sprint(text)
	default:
		return text
	}
}

// GetPlainCheck returns the label of a validation result.
func GetPlainCheck(passed bool) string {
	if passed {
		return PassedValue
	}
	return FailedValue
}

// GetColorCheck returns the colored label of a validation result.
func GetColorCheck(passed bool) string {
	if passed {
		return PassColor.Sprint(PassedValue)
	}
	return FailColor.Sprint(FailedValue)
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path means os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetStoreDBFilePath returns the path to the SQLite DB file for the system_data store.
func GetStoreDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".examlens_store.db"
	}
	return filepath.Join(homeDir, ".examlens_store.db")
}

// GetCacheDBFilePath returns the path to the SQLite DB file for the local cache.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".examlens_cache.db"
	}
	return filepath.Join(homeDir, ".examlens_cache.db")
}

// TruncateText truncates text to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so there is room for the ellipsis and some content.
func TruncateText(text string, maxWidth int) string {
	runes := []rune(text)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return text
}

// ParseSubjects splits a comma-separated subject list, dropping blanks and duplicates.
func ParseSubjects(s string) []string {
	var out []string
	seen := make(map[string]struct{})
	for part := range strings.SplitSeq(s, ",") {
		sub := strings.TrimSpace(part)
		if sub == "" {
			continue
		}
		if _, ok := seen[sub]; ok {
			continue
		}
		seen[sub] = struct{}{}
		out = append(out, sub)
	}
	return out
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// ConsoleNotifier writes notifications to a terminal stream.
type ConsoleNotifier struct {
	W         io.Writer
	UseColors bool
}

// Loading prints the message when an operation starts.
func (n ConsoleNotifier) Loading(active bool, message string) {
	if !active || message == "" {
		return
	}
	n.print(NoticeColor, message)
}

// Notify prints a message with a level prefix.
func (n ConsoleNotifier) Notify(level NoticeLevel, message string) {
	c := NoticeColor
	switch level {
	case NoticeSuccess:
		c = PassColor
	case NoticeWarning:
		c = WarnColor
	case NoticeError:
		c = FailColor
	}
	n.print(c, fmt.Sprintf("[%s] %s", level, message))
}

func (n ConsoleNotifier) print(c *color.Color, msg string) {
	if n.W == nil {
		return
	}
	if n.UseColors {
		msg = c.Sprint(msg)
	}
	_, _ = fmt.Fprintln(n.W, msg)
}

var _ Notifier = ConsoleNotifier{}
