package registry

import (
	"context"
	"time"

	"github.com/mitchellh/cli"
	"github.com/toolpin/toolpin/internal/ci"
	"github.com/toolpin/toolpin/internal/spinner"
)

// spinnerDelay is how long a registry call runs before the transient
// spinner appears, short enough that a fast cached hit never flashes it.
const spinnerDelay = 150 * time.Millisecond

// WithSpinner wraps a registry call with a transient spinner. Under CI
// the call runs with no output; on a non-TTY the message is printed once
// instead of animated.
func WithSpinner(ui cli.Ui, msg string, fn func() error) error {
	if ci.IsCi() {
		return fn()
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var callErr error
	err := spinner.WaitFor(ctx, func() {
		callErr = fn()
	}, ui, msg, spinnerDelay)
	if err != nil {
		return err
	}
	return callErr
}
