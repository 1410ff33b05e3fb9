package errors

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
)

func TestAppErrorFormatting(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	appErr := NewAppError(ErrorTypeConnection, "live store unreachable", cause)

	want := "connection: live store unreachable (caused by: dial tcp: connection refused)"
	if appErr.Error() != want {
		t.Errorf("Error() = %q, want %q", appErr.Error(), want)
	}
	if !errors.Is(appErr, cause) {
		t.Error("expected Unwrap to reach the cause")
	}

	bare := NewAppError(ErrorTypeValidation, "bad snapshot id", nil)
	if bare.Error() != "validation: bad snapshot id" {
		t.Errorf("Error() without cause = %q", bare.Error())
	}
	if bare.IsRecoverable() {
		t.Error("NewAppError must produce a non-recoverable error")
	}
	if !NewRecoverableError(ErrorTypeTimeout, "slow", nil).IsRecoverable() {
		t.Error("NewRecoverableError must produce a recoverable error")
	}
}

func TestAppErrorUserMessage(t *testing.T) {
	appErr := NewAppError(ErrorTypeStorage, "open /var/vault: permission denied", nil)
	if got := appErr.GetUserMessage(); got != "open /var/vault: permission denied" {
		t.Errorf("GetUserMessage fallback = %q", got)
	}

	appErr.UserMessage = "The snapshot directory is not writable."
	if got := appErr.GetUserMessage(); got != "The snapshot directory is not writable." {
		t.Errorf("GetUserMessage = %q", got)
	}
}

func TestAppErrorContextChaining(t *testing.T) {
	appErr := NewAppError(ErrorTypeSQL, "insert failed", nil).
		WithContext("table", "inventory").
		WithContext("rows", 42)

	if appErr.Context["table"] != "inventory" || appErr.Context["rows"] != 42 {
		t.Errorf("context not accumulated: %v", appErr.Context)
	}
}

func TestClassifyPassesThroughAppError(t *testing.T) {
	original := NewRecoverableError(ErrorTypeConnection, "socket reset", nil)
	got := NewErrorClassifier().ClassifyError(original)
	if got != original {
		t.Error("an existing AppError must come back unchanged")
	}
	if NewErrorClassifier().ClassifyError(nil) != nil {
		t.Error("nil must classify to nil")
	}
}

func TestClassifyMySQLCodes(t *testing.T) {
	classifier := NewErrorClassifier()

	tests := []struct {
		code        uint16
		wantType    ErrorType
		recoverable bool
	}{
		{1045, ErrorTypePermission, false},
		{1049, ErrorTypeValidation, false},
		{1146, ErrorTypeSQL, false},
		{1062, ErrorTypeValidation, false},
		{1064, ErrorTypeSQL, false},
		{2003, ErrorTypeConnection, true},
		{2006, ErrorTypeConnection, true},
		{1205, ErrorTypeSQL, false}, // unmapped code falls through to generic SQL
	}

	for _, tt := range tests {
		err := &mysql.MySQLError{Number: tt.code, Message: "server says no"}
		appErr := classifier.ClassifyError(err)

		if appErr.Type != tt.wantType {
			t.Errorf("code %d: type = %v, want %v", tt.code, appErr.Type, tt.wantType)
		}
		if appErr.IsRecoverable() != tt.recoverable {
			t.Errorf("code %d: recoverable = %v, want %v", tt.code, appErr.IsRecoverable(), tt.recoverable)
		}
		if appErr.Context["mysql_error_code"] != tt.code {
			t.Errorf("code %d: missing mysql_error_code context", tt.code)
		}
	}
}

// A real constraint violation through the embedded driver must classify as
// a validation error, with the extended result code masked to its primary.
func TestClassifySQLiteConstraint(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "classify.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE products (name TEXT NOT NULL UNIQUE)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO products (name) VALUES ('espresso beans')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	_, err = db.Exec(`INSERT INTO products (name) VALUES ('espresso beans')`)
	if err == nil {
		t.Fatal("expected a unique constraint violation")
	}

	appErr := NewErrorClassifier().ClassifyError(err)
	if appErr.Type != ErrorTypeValidation {
		t.Errorf("type = %v, want %v (err: %v)", appErr.Type, ErrorTypeValidation, err)
	}
	if appErr.IsRecoverable() {
		t.Error("a constraint violation is not recoverable")
	}
	if _, ok := appErr.Context["sqlite_error_code"]; !ok {
		t.Error("missing sqlite_error_code context")
	}
}

func TestClassifySQLSentinels(t *testing.T) {
	classifier := NewErrorClassifier()

	tests := []struct {
		err         error
		wantType    ErrorType
		recoverable bool
	}{
		{sql.ErrNoRows, ErrorTypeValidation, false},
		{sql.ErrTxDone, ErrorTypeSQL, false},
		{sql.ErrConnDone, ErrorTypeConnection, true},
	}

	for _, tt := range tests {
		appErr := classifier.ClassifyError(tt.err)
		if appErr.Type != tt.wantType || appErr.IsRecoverable() != tt.recoverable {
			t.Errorf("%v: got (%v, recoverable=%v), want (%v, %v)",
				tt.err, appErr.Type, appErr.IsRecoverable(), tt.wantType, tt.recoverable)
		}
	}
}

func TestClassifyContextAndFilesystem(t *testing.T) {
	classifier := NewErrorClassifier()

	tests := []struct {
		name     string
		err      error
		wantType ErrorType
	}{
		{"deadline", context.DeadlineExceeded, ErrorTypeTimeout},
		{"canceled", context.Canceled, ErrorTypeInterruption},
		{"missing file", &os.PathError{Op: "open", Path: "/vault/missing", Err: syscall.ENOENT}, ErrorTypeStorage},
		{"unreadable file", &os.PathError{Op: "open", Path: "/vault/locked", Err: syscall.EACCES}, ErrorTypePermission},
		{"disk full", &os.PathError{Op: "write", Path: "/vault/artifact", Err: syscall.ENOSPC}, ErrorTypeStorage},
		{"anything else", errors.New("cosmic rays"), ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifier.ClassifyError(tt.err); got.Type != tt.wantType {
				t.Errorf("type = %v, want %v", got.Type, tt.wantType)
			}
		})
	}
}

type fakeNetError struct {
	isTimeout bool
	isTemp    bool
}

func (e *fakeNetError) Error() string   { return "fake net error" }
func (e *fakeNetError) Timeout() bool   { return e.isTimeout }
func (e *fakeNetError) Temporary() bool { return e.isTemp }

func TestClassifyNetworkErrors(t *testing.T) {
	classifier := NewErrorClassifier()

	timeout := classifier.ClassifyError(&fakeNetError{isTimeout: true})
	if timeout.Type != ErrorTypeTimeout || !timeout.IsRecoverable() {
		t.Errorf("timeout classified as (%v, recoverable=%v)", timeout.Type, timeout.IsRecoverable())
	}

	temp := classifier.ClassifyError(&fakeNetError{isTemp: true})
	if temp.Type != ErrorTypeConnection || !temp.IsRecoverable() {
		t.Errorf("temporary classified as (%v, recoverable=%v)", temp.Type, temp.IsRecoverable())
	}
}

func testRetryHandler() *RetryHandler {
	return NewRetryHandler(RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    10 * time.Millisecond,
		Multiplier:  2.0,
	})
}

func TestRetrySucceedsWithoutRetrying(t *testing.T) {
	attempts := 0
	err := testRetryHandler().Retry(context.Background(), func() error {
		attempts++
		return nil
	})
	if err != nil || attempts != 1 {
		t.Errorf("err = %v, attempts = %d", err, attempts)
	}
}

func TestRetryRecoversAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := testRetryHandler().Retry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return NewRecoverableError(ErrorTypeConnection, "store busy", nil)
		}
		return nil
	})
	if err != nil {
		t.Errorf("expected recovery, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryStopsOnNonRecoverable(t *testing.T) {
	attempts := 0
	err := testRetryHandler().Retry(context.Background(), func() error {
		attempts++
		return NewAppError(ErrorTypeValidation, "unknown snapshot", nil)
	})

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Type != ErrorTypeValidation {
		t.Errorf("got %v", err)
	}
}

func TestRetryExhaustionReportsAttempts(t *testing.T) {
	attempts := 0
	err := testRetryHandler().Retry(context.Background(), func() error {
		attempts++
		return NewRecoverableError(ErrorTypeConnection, "store busy", nil)
	})

	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("got %v", err)
	}
	if appErr.Context["attempts"] != 3 {
		t.Errorf("attempts context = %v, want 3", appErr.Context["attempts"])
	}
}

func TestRetryHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := testRetryHandler().Retry(ctx, func() error {
		attempts++
		return nil
	})

	if attempts != 0 {
		t.Errorf("operation ran %d times on a dead context", attempts)
	}
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Type != ErrorTypeInterruption {
		t.Errorf("got %v", err)
	}
}

func TestBackoffDelaysAreExactAndCapped(t *testing.T) {
	handler := NewRetryHandler(RetryConfig{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2.0,
	})

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second, // 1600ms capped
		time.Second,
	}
	for i, w := range want {
		if got := handler.calculateDelay(i + 1); got != w {
			t.Errorf("attempt %d: delay = %v, want %v", i+1, got, w)
		}
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg.MaxAttempts != 3 || cfg.BaseDelay != time.Second || cfg.MaxDelay != 30*time.Second || cfg.Multiplier != 2.0 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

// Shutdown functions must run in reverse registration order, like defers:
// the scheduler registered after the server stops before it.
func TestShutdownRunsInReverseOrder(t *testing.T) {
	handler := NewGracefulShutdownHandler()

	var order []string
	handler.RegisterShutdownFunc(func() error {
		order = append(order, "first-registered")
		return nil
	})
	handler.RegisterShutdownFunc(func() error {
		order = append(order, "second-registered")
		return nil
	})

	handler.shutdown()
	handler.WaitForShutdown()

	if len(order) != 2 || order[0] != "second-registered" || order[1] != "first-registered" {
		t.Errorf("shutdown order = %v", order)
	}
}

func TestShutdownContinuesPastFailures(t *testing.T) {
	handler := NewGracefulShutdownHandler()

	ran := false
	handler.RegisterShutdownFunc(func() error {
		ran = true
		return nil
	})
	handler.RegisterShutdownFunc(func() error {
		return errors.New("refusing to stop")
	})

	handler.shutdown()
	if !ran {
		t.Error("a failing shutdown func must not block the rest")
	}
}

func TestRecoverableAndTypeHelpers(t *testing.T) {
	transient := NewRecoverableError(ErrorTypeConnection, "store busy", nil)
	fatal := NewAppError(ErrorTypeValidation, "bad input", nil)
	plain := errors.New("plain")

	if !IsRecoverableError(transient) || IsRecoverableError(fatal) || IsRecoverableError(plain) || IsRecoverableError(nil) {
		t.Error("IsRecoverableError misjudged at least one case")
	}

	if GetErrorType(fatal) != ErrorTypeValidation {
		t.Errorf("GetErrorType(app) = %v", GetErrorType(fatal))
	}
	if GetErrorType(plain) != ErrorTypeUnknown || GetErrorType(nil) != ErrorTypeUnknown {
		t.Error("non-app errors must report unknown")
	}
}

func TestFormatUserError(t *testing.T) {
	withUser := &AppError{Type: ErrorTypeStorage, Message: "stat failed", UserMessage: "Snapshot directory is missing."}
	if got := FormatUserError(withUser); got != "Snapshot directory is missing." {
		t.Errorf("got %q", got)
	}

	plainApp := &AppError{Type: ErrorTypeStorage, Message: "stat failed"}
	if got := FormatUserError(plainApp); got != "stat failed" {
		t.Errorf("got %q", got)
	}

	if got := FormatUserError(errors.New("boom")); got != "An unexpected error occurred. Please check the logs for more details." {
		t.Errorf("got %q", got)
	}
	if FormatUserError(nil) != "" {
		t.Error("nil must format to empty")
	}
}

func TestWrapErrorKeepsTypeAndChain(t *testing.T) {
	if WrapError(nil, "ignored") != nil {
		t.Error("wrapping nil must stay nil")
	}

	inner := NewAppError(ErrorTypeStorage, "artifact missing", nil)
	wrapped := WrapError(inner, "verify failed")

	var appErr *AppError
	if !errors.As(wrapped, &appErr) {
		t.Fatalf("got %T", wrapped)
	}
	if appErr.Type != ErrorTypeStorage {
		t.Errorf("type = %v, want the inner error's type", appErr.Type)
	}
	if appErr.Message != "verify failed" {
		t.Errorf("message = %q", appErr.Message)
	}
	if !errors.Is(wrapped, inner) {
		t.Error("chain to the inner error lost")
	}

	classified := WrapError(errors.New("raw"), "context added")
	if !errors.As(classified, &appErr) || appErr.Message != "context added" {
		t.Errorf("plain error wrap = %v", classified)
	}
}

func TestContextHelpers(t *testing.T) {
	ctx, cancel := CreateContextWithTimeout(50 * time.Millisecond)
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Error("expected a deadline")
	}

	ctx2, cancel2 := CreateContextWithCancel()
	select {
	case <-ctx2.Done():
		t.Error("fresh context already done")
	default:
	}
	cancel2()
	select {
	case <-ctx2.Done():
	case <-time.After(time.Second):
		t.Error("cancel did not propagate")
	}
}
