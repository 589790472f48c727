package interfaces

// SessionStore persists browser session state (cookies, local storage)
// between runs
type SessionStore interface {
	// SaveState stores the serialized session state
	SaveState(state []byte) error

	// LoadState returns the stored state; found is false when nothing was saved
	LoadState() (state []byte, found bool, err error)

	// Clear removes the stored state
	Clear() error
}
