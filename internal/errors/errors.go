package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-sql-driver/mysql"
	sqlite "modernc.org/sqlite"
)

// ErrorType buckets errors by what the operator can do about them.
type ErrorType string

const (
	ErrorTypeConnection   ErrorType = "connection"
	ErrorTypeSQL          ErrorType = "sql"
	ErrorTypeStorage      ErrorType = "storage"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypePermission   ErrorType = "permission"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeInterruption ErrorType = "interruption"
	ErrorTypeUnknown      ErrorType = "unknown"
)

// Primary SQLite result codes relevant to classification.
const (
	sqliteBusy     = 5
	sqliteLocked   = 6
	sqliteCorrupt  = 11
	sqliteFull     = 13
	sqliteCantOpen = 14
	sqliteConstr   = 19
)

// AppError carries a classification, an operator-facing message, and the
// original cause. Recoverable marks errors worth retrying.
type AppError struct {
	Type        ErrorType
	Message     string
	UserMessage string
	Cause       error
	Context     map[string]interface{}
	Recoverable bool
}

func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// GetUserMessage returns the user-facing message, falling back to the
// operator message when no friendlier one was set.
func (e *AppError) GetUserMessage() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	return e.Message
}

// IsRecoverable reports whether a retry could succeed.
func (e *AppError) IsRecoverable() bool {
	return e.Recoverable
}

// WithContext attaches a key/value pair and returns the error for chaining.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError builds a non-recoverable error of the given type.
func NewAppError(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewRecoverableError builds an error marked safe to retry.
func NewRecoverableError(errorType ErrorType, message string, cause error) *AppError {
	appErr := NewAppError(errorType, message, cause)
	appErr.Recoverable = true
	return appErr
}

// asAppError unwraps err to an *AppError anywhere in its chain.
func asAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// ErrorClassifier turns driver, network, context, and filesystem errors
// into typed AppErrors.
type ErrorClassifier struct{}

// NewErrorClassifier creates a new error classifier
func NewErrorClassifier() *ErrorClassifier {
	return &ErrorClassifier{}
}

// ClassifyError analyzes an error and returns a typed AppError. An error
// that already is an AppError passes through untouched.
func (ec *ErrorClassifier) ClassifyError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := asAppError(err); ok {
		return appErr
	}

	for _, classify := range []func(error) *AppError{
		ec.classifyMySQLError,
		ec.classifySQLiteError,
		ec.classifyDriverError,
		ec.classifyNetworkError,
		ec.classifyContextError,
		ec.classifyFileSystemError,
	} {
		if classified := classify(err); classified != nil {
			return classified
		}
	}

	return NewAppError(ErrorTypeUnknown, "An unexpected error occurred", err)
}

type mysqlClass struct {
	errType     ErrorType
	message     string
	recoverable bool
}

// mysqlClasses maps server error numbers the tool actually runs into.
var mysqlClasses = map[uint16]mysqlClass{
	1045: {ErrorTypePermission, "Live store access denied - check username and password", false},
	1049: {ErrorTypeValidation, "Database does not exist", false},
	1062: {ErrorTypeValidation, "Duplicate entry - record already exists", false},
	1064: {ErrorTypeSQL, "SQL syntax error", false},
	1146: {ErrorTypeSQL, "Table does not exist", false},
	2003: {ErrorTypeConnection, "Cannot connect to MySQL server - server may be down or unreachable", true},
	2006: {ErrorTypeConnection, "MySQL server connection lost - attempting to reconnect", true},
}

func (ec *ErrorClassifier) classifyMySQLError(err error) *AppError {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return nil
	}

	class, ok := mysqlClasses[mysqlErr.Number]
	if !ok {
		class = mysqlClass{ErrorTypeSQL, fmt.Sprintf("MySQL error: %s", mysqlErr.Message), false}
	}

	appErr := NewAppError(class.errType, class.message, err)
	appErr.Recoverable = class.recoverable
	return appErr.WithContext("mysql_error_code", mysqlErr.Number)
}

// classifySQLiteError classifies errors returned by the pure Go sqlite driver
func (ec *ErrorClassifier) classifySQLiteError(err error) *AppError {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return nil
	}

	// Mask extended result codes down to the primary code
	switch sqliteErr.Code() & 0xff {
	case sqliteBusy, sqliteLocked:
		return NewRecoverableError(ErrorTypeConnection,
			"Live store is locked by another writer", err).
			WithContext("sqlite_error_code", sqliteErr.Code())
	case sqliteCorrupt:
		return NewAppError(ErrorTypeStorage,
			"Live store file is corrupted", err).
			WithContext("sqlite_error_code", sqliteErr.Code())
	case sqliteFull:
		return NewAppError(ErrorTypeStorage,
			"No space left for the live store", err).
			WithContext("sqlite_error_code", sqliteErr.Code())
	case sqliteCantOpen:
		return NewAppError(ErrorTypePermission,
			"Cannot open live store file", err).
			WithContext("sqlite_error_code", sqliteErr.Code())
	case sqliteConstr:
		return NewAppError(ErrorTypeValidation,
			"Constraint violation - record already exists", err).
			WithContext("sqlite_error_code", sqliteErr.Code())
	default:
		return NewAppError(ErrorTypeSQL,
			fmt.Sprintf("SQLite error: %s", sqliteErr.Error()), err).
			WithContext("sqlite_error_code", sqliteErr.Code())
	}
}

func (ec *ErrorClassifier) classifyDriverError(err error) *AppError {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return NewAppError(ErrorTypeValidation, "No rows found", err)
	case errors.Is(err, sql.ErrTxDone):
		return NewAppError(ErrorTypeSQL, "Transaction has already been committed or rolled back", err)
	case errors.Is(err, sql.ErrConnDone):
		return NewRecoverableError(ErrorTypeConnection, "Database connection is closed", err)
	}

	return nil
}

func (ec *ErrorClassifier) classifyNetworkError(err error) *AppError {
	var netErr net.Error
	if errors.As(err, &netErr) {
		switch {
		case netErr.Timeout():
			return NewRecoverableError(ErrorTypeTimeout, "Network operation timed out", err)
		case netErr.Temporary():
			return NewRecoverableError(ErrorTypeConnection, "Temporary network error", err)
		}
	}

	// net.OpError satisfies net.Error, so a non-timeout dial or I/O
	// failure falls through to here.
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return nil
	}

	switch opErr.Op {
	case "dial":
		return NewRecoverableError(ErrorTypeConnection, "Failed to establish network connection", err)
	case "read", "write":
		return NewRecoverableError(ErrorTypeConnection, "Network I/O error", err)
	}

	return nil
}

func (ec *ErrorClassifier) classifyContextError(err error) *AppError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewRecoverableError(ErrorTypeTimeout, "Operation timed out", err)
	case errors.Is(err, context.Canceled):
		return NewAppError(ErrorTypeInterruption, "Operation was canceled", err)
	}

	return nil
}

func (ec *ErrorClassifier) classifyFileSystemError(err error) *AppError {
	var pathErr *os.PathError
	if !errors.As(err, &pathErr) {
		return nil
	}

	switch {
	case errors.Is(pathErr.Err, syscall.ENOENT):
		return NewAppError(ErrorTypeStorage,
			fmt.Sprintf("File or directory not found: %s", pathErr.Path), err)
	case errors.Is(pathErr.Err, syscall.EACCES):
		return NewAppError(ErrorTypePermission,
			fmt.Sprintf("Permission denied: %s", pathErr.Path), err)
	case errors.Is(pathErr.Err, syscall.ENOSPC):
		return NewAppError(ErrorTypeStorage, "No space left on device", err)
	}

	return nil
}

// RetryConfig bounds how often and how fast a RetryHandler retries.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultRetryConfig is three attempts with 1s/2s backoff capped at 30s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
	}
}

// RetryHandler reruns operations that fail with recoverable errors, backing
// off exponentially between attempts.
type RetryHandler struct {
	config     RetryConfig
	classifier *ErrorClassifier
}

// NewRetryHandler builds a handler with the given bounds.
func NewRetryHandler(config RetryConfig) *RetryHandler {
	return &RetryHandler{
		config:     config,
		classifier: NewErrorClassifier(),
	}
}

// NewDefaultRetryHandler builds a handler with DefaultRetryConfig.
func NewDefaultRetryHandler() *RetryHandler {
	return NewRetryHandler(DefaultRetryConfig())
}

// Retry runs operation up to MaxAttempts times. Non-recoverable errors
// return immediately; a canceled context wins over both the operation and
// the backoff wait.
func (rh *RetryHandler) Retry(ctx context.Context, operation func() error) error {
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return NewAppError(ErrorTypeInterruption, "Operation canceled", ctx.Err())
		}

		err := operation()
		if err == nil {
			return nil
		}

		appErr := rh.classifier.ClassifyError(err)
		if !appErr.IsRecoverable() {
			return appErr
		}
		if attempt >= rh.config.MaxAttempts {
			return appErr.WithContext("attempts", rh.config.MaxAttempts)
		}

		select {
		case <-ctx.Done():
			return NewAppError(ErrorTypeInterruption, "Operation canceled during retry", ctx.Err())
		case <-time.After(rh.calculateDelay(attempt)):
		}
	}
}

// calculateDelay grows the base delay by Multiplier per completed attempt,
// capped at MaxDelay.
func (rh *RetryHandler) calculateDelay(attempt int) time.Duration {
	scaled := float64(rh.config.BaseDelay) * math.Pow(rh.config.Multiplier, float64(attempt-1))
	if scaled > float64(rh.config.MaxDelay) {
		return rh.config.MaxDelay
	}
	return time.Duration(scaled)
}

// GracefulShutdownHandler runs registered cleanup functions when the
// process receives SIGINT or SIGTERM.
type GracefulShutdownHandler struct {
	cleanups []func() error
	signals  chan os.Signal
	finished chan bool
}

// NewGracefulShutdownHandler builds a handler with no cleanups registered.
func NewGracefulShutdownHandler() *GracefulShutdownHandler {
	return &GracefulShutdownHandler{
		signals:  make(chan os.Signal, 1),
		finished: make(chan bool, 1),
	}
}

// RegisterShutdownFunc adds a cleanup to run at shutdown.
func (gsh *GracefulShutdownHandler) RegisterShutdownFunc(fn func() error) {
	gsh.cleanups = append(gsh.cleanups, fn)
}

// Start begins watching for SIGINT and SIGTERM.
func (gsh *GracefulShutdownHandler) Start() {
	signal.Notify(gsh.signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-gsh.signals
		gsh.shutdown()
	}()
}

// Stop detaches the handler from signal delivery.
func (gsh *GracefulShutdownHandler) Stop() {
	signal.Stop(gsh.signals)
	close(gsh.signals)
}

// WaitForShutdown blocks until the registered functions have run.
func (gsh *GracefulShutdownHandler) WaitForShutdown() {
	<-gsh.finished
}

// shutdown runs the registered functions newest first, like deferred
// calls. A failing function is reported and the rest still run.
func (gsh *GracefulShutdownHandler) shutdown() {
	defer func() { gsh.finished <- true }()

	for i := len(gsh.cleanups); i > 0; i-- {
		if err := gsh.cleanups[i-1](); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
	}
}

// CreateContextWithTimeout derives a deadline context from Background.
func CreateContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// CreateContextWithCancel derives a cancelable context from Background.
func CreateContextWithCancel() (context.Context, context.CancelFunc) {
	return context.WithCancel(context.Background())
}

// IsRecoverableError reports whether err carries a recoverable AppError.
func IsRecoverableError(err error) bool {
	appErr, ok := asAppError(err)
	return ok && appErr.IsRecoverable()
}

// GetErrorType extracts the classification, ErrorTypeUnknown for plain errors.
func GetErrorType(err error) ErrorType {
	if appErr, ok := asAppError(err); ok {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// FormatUserError renders err for end users, preferring the UserMessage.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	if appErr, ok := asAppError(err); ok {
		return appErr.GetUserMessage()
	}

	return "An unexpected error occurred. Please check the logs for more details."
}

// WrapError replaces the operator message while keeping the classification
// and the cause chain intact.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}

	if appErr, ok := asAppError(err); ok {
		return NewAppError(appErr.Type, message, err)
	}

	classified := NewErrorClassifier().ClassifyError(err)
	classified.Message = message
	return classified
}
