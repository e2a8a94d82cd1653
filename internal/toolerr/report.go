package toolerr

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// WriteReport appends the full cause chain and timestamped context of
// err to a new file under logDir, returning the file's path so the
// caller can print it alongside the short stderr message. Report
// failures are swallowed: a broken log directory must never mask the
// original error.
func WriteReport(logDir, invocation string, err error) (string, bool) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return "", false
	}
	now := time.Now()
	path := fmt.Sprintf("%s%ctoolpin-error-%s.log", logDir, os.PathSeparator, now.Format("2006-01-02T15-04-05.000"))

	var b strings.Builder
	fmt.Fprintf(&b, "time: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&b, "invocation: %s\n", invocation)
	var te *Error
	if errors.As(err, &te) {
		fmt.Fprintf(&b, "exit code: %d\n", te.ExitCode())
		for k, v := range te.Context {
			fmt.Fprintf(&b, "%s: %v\n", k, v)
		}
	}
	fmt.Fprintf(&b, "\nerror: %v\n", err)
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		fmt.Fprintf(&b, "caused by: %v\n", cause)
	}

	if writeErr := os.WriteFile(path, []byte(b.String()), 0o644); writeErr != nil {
		return "", false
	}
	return path, true
}
