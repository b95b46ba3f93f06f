package cloudsync

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"regexp"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/examlens/internal/codec"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies a sync failure by what the user can do about it.
type Kind string

// Failure kinds. NotFound is not a failure; it is reported as a result status.
const (
	KindConfigIncomplete Kind = "config_incomplete"
	KindNotConnected     Kind = "not_connected"
	KindPermissionDenied Kind = "permission_denied"
	KindNetworkFailure   Kind = "network_failure"
	KindMalformedPayload Kind = "malformed_payload"
	KindBackend          Kind = "backend"
)

// Sentinels matched by errors.Is against a *SyncError of the same kind.
var (
	ErrConfigIncomplete = errors.New("sync metadata incomplete")
	ErrNotConnected     = errors.New("store not connected")
	ErrPermissionDenied = errors.New("permission denied by backend policy")
	ErrNetworkFailure   = errors.New("network failure")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrBackend          = errors.New("backend error")

	// ErrNoMetadata is returned by NewReconciler without a MetadataProvider.
	ErrNoMetadata = errors.New("cloudsync: metadata provider is required")
)

var sentinels = map[Kind]error{
	KindConfigIncomplete: ErrConfigIncomplete,
	KindNotConnected:     ErrNotConnected,
	KindPermissionDenied: ErrPermissionDenied,
	KindNetworkFailure:   ErrNetworkFailure,
	KindMalformedPayload: ErrMalformedPayload,
	KindBackend:          ErrBackend,
}

var guidance = map[Kind]string{
	KindConfigIncomplete: "Fill in the missing exam metadata (cohort, year, term, exam type) or term id, then retry.",
	KindNotConnected:     "The shared store is not connected. Check --store-backend and --store-db-connect, then retry.",
	KindPermissionDenied: "The backend rejected the request by policy. Ask an administrator to open the system_data table to this account; retrying will not help.",
	KindNetworkFailure:   "Could not reach the shared store. Check the network connection and retry.",
	KindMalformedPayload: "The stored data could not be decoded. Ask an administrator to sync it again.",
	KindBackend:          "The shared store returned an error. See the message for details.",
}

// SyncError is a failed sync operation.
type SyncError struct {
	Kind Kind
	Op   string
	Key  string
	Err  error
}

func (e *SyncError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cloudsync %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("cloudsync %s %s: %s: %v", e.Op, e.Key, e.Kind, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *SyncError) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// Guidance returns what the user should do next.
func (e *SyncError) Guidance() string {
	return guidance[e.Kind]
}

// Guidance returns the guidance of a *SyncError in err's chain, or an empty string.
func Guidance(err error) string {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Guidance()
	}
	return ""
}

var (
	permissionPattern = regexp.MustCompile(`(?i)permission|policy|row-level|rls|权限`)
	networkPattern    = regexp.MustCompile(`(?i)network|fetch|failed to fetch|timeout|timed out|网络`)
	malformedPattern  = regexp.MustCompile(`(?i)json|parse|unexpected token`)
)

// MySQL error numbers for access denied.
var mysqlDenied = map[uint16]struct{}{
	1044: {}, // ER_DBACCESS_DENIED_ERROR
	1045: {}, // ER_ACCESS_DENIED_ERROR
	1142: {}, // ER_TABLEACCESS_DENIED_ERROR
	1143: {}, // ER_COLUMNACCESS_DENIED_ERROR
}

const pgInsufficientPrivilege = "42501"

// Classify maps a backend error to a failure kind.
// Driver error codes win over message patterns.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgInsufficientPrivilege {
		return KindPermissionDenied
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if _, ok := mysqlDenied[myErr.Number]; ok {
			return KindPermissionDenied
		}
	}
	if errors.Is(err, codec.ErrMalformed) {
		return KindMalformedPayload
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return KindNetworkFailure
	}

	msg := err.Error()
	switch {
	case permissionPattern.MatchString(msg):
		return KindPermissionDenied
	case networkPattern.MatchString(msg):
		return KindNetworkFailure
	case malformedPattern.MatchString(msg):
		return KindMalformedPayload
	default:
		return KindBackend
	}
}

func newSyncError(op, key string, kind Kind, err error) *SyncError {
	return &SyncError{Kind: kind, Op: op, Key: key, Err: err}
}
