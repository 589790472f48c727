package interfaces

import (
	"context"

	"pom_automation/domain/entities"
)

// Page is the contract every page object satisfies
type Page interface {
	// Name returns the registry entry the page was built from
	Name() entities.PageName

	// URL returns the canonical location of the page
	URL() string

	// Navigate loads URL and verifies the browser landed there
	Navigate(ctx context.Context) error

	// Release ends the page's ownership of its driver
	Release()

	// Released reports whether Release was called
	Released() bool
}
