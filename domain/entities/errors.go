package entities

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDriverTimeout is wrapped by drivers whenever the browser did not
	// settle within the bound it was given.
	ErrDriverTimeout = errors.New("driver timeout")
	// ErrNotNavigated is returned when a page action runs before a
	// successful Navigate.
	ErrNotNavigated = errors.New("page not navigated")
	// ErrReleased is returned by every operation on a released page.
	ErrReleased = errors.New("page released")
	// ErrPageOwned is returned when a driver handle already belongs to a live page.
	ErrPageOwned = errors.New("driver already owned by a live page")
	// ErrDriverClosed is returned by drivers after Close.
	ErrDriverClosed = errors.New("driver closed")
)

// DriverError wraps a failure reported by the browser driver.
type DriverError struct {
	Op       string
	Selector string
	URL      string
	Err      error
}

func (e *DriverError) Error() string {
	switch {
	case e.Selector != "":
		return fmt.Sprintf("driver %s %q: %v", e.Op, e.Selector, e.Err)
	case e.URL != "":
		return fmt.Sprintf("driver %s %s: %v", e.Op, e.URL, e.Err)
	default:
		return fmt.Sprintf("driver %s: %v", e.Op, e.Err)
	}
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

// WaitError is returned by Driver.WaitFor when the element did not reach
// the requested state in time.
type WaitError struct {
	Selector string
	State    ElementState
	Timeout  time.Duration
	Err      error
}

func (e *WaitError) Error() string {
	msg := fmt.Sprintf("wait for %q to be %s: timed out after %s", e.Selector, e.State, e.Timeout)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *WaitError) Unwrap() error {
	return e.Err
}

// Is makes every WaitError match ErrDriverTimeout.
func (e *WaitError) Is(target error) bool {
	return target == ErrDriverTimeout
}

// NavigationErrorKind classifies a failed navigation.
type NavigationErrorKind string

const (
	NavigationTimeout       NavigationErrorKind = "timeout"
	NavigationDriverFailure NavigationErrorKind = "driver_failure"
	// NavigationMismatch means the driver settled on a different document.
	NavigationMismatch NavigationErrorKind = "mismatch"
)

// NavigationError is returned by Page.Navigate.
type NavigationError struct {
	Kind    NavigationErrorKind
	URL     string
	Current string
	Timeout time.Duration
	Err     error
}

func (e *NavigationError) Error() string {
	switch e.Kind {
	case NavigationTimeout:
		return fmt.Sprintf("navigate to %s: not settled within %s", e.URL, e.Timeout)
	case NavigationMismatch:
		return fmt.Sprintf("navigate to %s: landed on %s", e.URL, e.Current)
	default:
		return fmt.Sprintf("navigate to %s: %v", e.URL, e.Err)
	}
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// ElementNotReadyError is returned when a page action gave up waiting for
// its element to become actionable.
type ElementNotReadyError struct {
	Selector string
	State    ElementState
	Elapsed  time.Duration
	Err      error
}

func (e *ElementNotReadyError) Error() string {
	return fmt.Sprintf("element %q not %s after %s", e.Selector, e.State, e.Elapsed)
}

func (e *ElementNotReadyError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err stems from a bounded wait or navigation
// running out of time.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var navErr *NavigationError
	if errors.As(err, &navErr) {
		return navErr.Kind == NavigationTimeout
	}
	var notReady *ElementNotReadyError
	if errors.As(err, &notReady) {
		return true
	}
	return errors.Is(err, ErrDriverTimeout)
}

// IsContractViolation reports whether err is a programming error on the
// caller's side rather than a browser outcome.
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrNotNavigated) || errors.Is(err, ErrReleased) || errors.Is(err, ErrPageOwned)
}
