package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pom_automation/application/pages"
	"pom_automation/domain/entities"
	"pom_automation/domain/interfaces"
	"pom_automation/infrastructure/logging"
)

const eventHistory = 100

// Session owns one driver and hands it to at most one live page at a time.
type Session struct {
	id      string
	mu      sync.Mutex
	driver  interfaces.Driver
	opts    pages.Options
	logger  logrus.FieldLogger
	current interfaces.Page
	events  []entities.DriverEvent
	unsubs  []func()
	closed  bool
}

// New - wraps driver in a session; opts is passed to every page it opens
func New(driver interfaces.Driver, opts pages.Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Null()
	}
	id := uuid.New().String()[:8]
	logger = logger.WithField("session", id)
	opts.Logger = logger
	s := &Session{
		id:     id,
		driver: driver,
		opts:   opts,
		logger: logger,
	}
	for _, kind := range []entities.EventKind{
		entities.EventConsole,
		entities.EventPageError,
		entities.EventDialog,
		entities.EventResponse,
	} {
		s.unsubs = append(s.unsubs, driver.OnEvent(kind, s.record))
	}
	return s
}

// ID - short identifier attached to every log line of the session
func (s *Session) ID() string { return s.id }

// Open - builds the page registered under name and makes it current.
// The previous page is released first. The page is not navigated.
func (s *Session) Open(name entities.PageName, params map[string]string) (interfaces.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, entities.ErrDriverClosed
	}
	page, err := pages.New(name, s.driver, params, s.opts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	s.releaseLocked()
	s.current = page
	s.logger.WithField("page", name.String()).Debug("page opened")
	return page, nil
}

type driverOwner interface {
	Driver() interfaces.Driver
}

// Attach - makes page current. It fails with ErrPageOwned while another
// page still holds the driver, or when page drives a different browser.
func (s *Session) Attach(page interfaces.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return entities.ErrDriverClosed
	}
	if page == nil || page.Released() {
		return fmt.Errorf("attach: %w", entities.ErrReleased)
	}
	if owner, ok := page.(driverOwner); ok && owner.Driver() != s.driver {
		return fmt.Errorf("attach %s: page drives another browser: %w", page.Name(), entities.ErrPageOwned)
	}
	if s.current != nil && s.current != page && !s.current.Released() {
		return fmt.Errorf("attach %s: %s is live: %w", page.Name(), s.current.Name(), entities.ErrPageOwned)
	}
	s.current = page
	return nil
}

// Current - returns the page holding the driver, nil if none
func (s *Session) Current() interfaces.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.Released() {
		return nil
	}
	return s.current
}

// Release - releases the current page, keeping the driver open
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
}

func (s *Session) releaseLocked() {
	if s.current != nil {
		s.current.Release()
		s.current = nil
	}
}

// Events - returns the most recent driver events, oldest first
func (s *Session) Events() []entities.DriverEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.DriverEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Close - releases the page, drops event subscriptions and closes the driver
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.releaseLocked()
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	return s.driver.Close()
}

func (s *Session) record(evt entities.DriverEvent) {
	s.mu.Lock()
	s.events = append(s.events, evt)
	if len(s.events) > eventHistory {
		s.events = s.events[len(s.events)-eventHistory:]
	}
	s.mu.Unlock()

	log := s.logger.WithField("event", evt.Kind)
	switch evt.Kind {
	case entities.EventConsole:
		log.WithField("type", evt.Type).Debug(evt.Text)
	case entities.EventPageError:
		log.Warn(evt.Text)
	case entities.EventDialog:
		log.WithField("type", evt.Type).Infof("dialog accepted: %s", evt.Text)
	case entities.EventResponse:
		if evt.Status >= 400 {
			log.WithFields(logrus.Fields{"url": evt.URL, "status": evt.Status}).Warn("error response")
		}
	}
}
