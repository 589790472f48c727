package interfaces

import (
	"context"
	"time"

	"pom_automation/domain/entities"
)

// Locator is a lazy reference to zero or more elements of the current
// document. It is re-evaluated on every use.
type Locator interface {
	Selector() string
}

// Driver defines the browser capability page objects are built on.
// A Driver drives exactly one browsing context and is not safe for
// concurrent operations.
type Driver interface {
	// Navigate loads url and waits until the document settles or timeout elapses
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// CurrentURL returns the location of the current document
	CurrentURL(ctx context.Context) (string, error)

	// Locate builds a locator; it never fails and never touches the browser
	Locate(selector string) Locator

	// WaitFor blocks until the located element reaches state.
	// A timeout is reported as *entities.WaitError.
	WaitFor(ctx context.Context, loc Locator, state entities.ElementState, timeout time.Duration) error

	// Act performs an interaction on the located element
	Act(ctx context.Context, loc Locator, action entities.ActionKind, args ...string) error

	// Read returns the element's text or attribute; found is false when
	// the element or attribute is absent
	Read(ctx context.Context, loc Locator, what entities.ReadTarget) (value string, found bool, err error)

	// OnEvent subscribes to browser events; the returned func unsubscribes
	OnEvent(kind entities.EventKind, handler func(entities.DriverEvent)) (unsubscribe func())

	// Close releases the browsing context
	Close() error
}
