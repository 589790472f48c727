// Package pages implements page objects over a browser Driver.
//
// Every page embeds a *Base, which owns the driver handle for the page's
// lifetime and provides the shared lifecycle:
//
//	Constructed -> Navigated -> (Acting)* -> Released
//
// Actions are only valid once Navigate (or Arrive) succeeded; before that
// they fail with entities.ErrNotNavigated without touching the driver.
// A page is not safe for concurrent use. Nothing here retries; see the
// retry package for caller-side policies.
package pages

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"pom_automation/application/registry"
	"pom_automation/domain/entities"
	"pom_automation/domain/interfaces"
	"pom_automation/infrastructure/logging"
)

// State is the lifecycle position of a page object.
type State int

const (
	StateConstructed State = iota
	StateNavigated
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateNavigated:
		return "navigated"
	case StateReleased:
		return "released"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Timeouts bounds every suspending page operation.
type Timeouts struct {
	Navigation  time.Duration
	Appear      time.Duration
	Interactive time.Duration
	Probe       time.Duration
	// Action bounds a single driver action once its element is ready.
	Action      time.Duration
}

// DefaultTimeouts returns the bounds used when Options leaves them unset.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Navigation:  30 * time.Second,
		Appear:      5 * time.Second,
		Interactive: 5 * time.Second,
		Probe:       time.Second,
		Action:      5 * time.Second,
	}
}

func (t Timeouts) withDefaults() Timeouts {
	def := DefaultTimeouts()
	if t.Navigation <= 0 {
		t.Navigation = def.Navigation
	}
	if t.Appear <= 0 {
		t.Appear = def.Appear
	}
	if t.Interactive <= 0 {
		t.Interactive = def.Interactive
	}
	if t.Probe <= 0 {
		t.Probe = def.Probe
	}
	if t.Action <= 0 {
		t.Action = def.Action
	}
	return t
}

// URLMatch decides whether the browser location got satisfies the page URL want.
type URLMatch func(want, got string) bool

// MatchExact accepts the same scheme, host and path; query and fragment
// are ignored.
func MatchExact(want, got string) bool {
	w, g, ok := parsePair(want, got)
	if !ok {
		return want == got
	}
	return sameOrigin(w, g) && trimSlash(w.Path) == trimSlash(g.Path)
}

// MatchPrefix accepts any path below the page URL on the same origin.
func MatchPrefix(want, got string) bool {
	w, g, ok := parsePair(want, got)
	if !ok {
		return strings.HasPrefix(got, want)
	}
	wp, gp := trimSlash(w.Path), trimSlash(g.Path)
	return sameOrigin(w, g) && (gp == wp || strings.HasPrefix(gp, wp+"/"))
}

func parsePair(want, got string) (*url.URL, *url.URL, bool) {
	w, err := url.Parse(want)
	if err != nil {
		return nil, nil, false
	}
	g, err := url.Parse(got)
	if err != nil {
		return nil, nil, false
	}
	return w, g, true
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}

func trimSlash(p string) string {
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		return strings.TrimSuffix(p, "/")
	}
	return p
}

// Options configures a page object. Zero values fall back to defaults.
type Options struct {
	BaseURL  string
	Timeouts Timeouts
	// Match overrides URL verification after navigation.
	Match    URLMatch
	Registry *registry.Registry
	Logger   logrus.FieldLogger
}

func (o Options) registry() *registry.Registry {
	if o.Registry != nil {
		return o.Registry
	}
	return registry.Default()
}

// Base carries the state every page object shares.
type Base struct {
	descriptor entities.PageDescriptor
	driver     interfaces.Driver
	url        string
	timeouts   Timeouts
	match      URLMatch
	state      State
	logger     logrus.FieldLogger
}

// NewBase builds the shared part of a page for the registry entry name.
// params fills the placeholders of templated URLs.
func NewBase(driver interfaces.Driver, name entities.PageName, params map[string]string, opts Options) (*Base, error) {
	if driver == nil {
		return nil, errors.New("pages: nil driver")
	}
	if !name.IsValid() {
		return nil, errors.New("pages: invalid page name")
	}

	desc := opts.registry().Resolve(name)
	target, err := desc.Expand(opts.BaseURL, params)
	if err != nil {
		return nil, err
	}

	match := opts.Match
	if match == nil {
		match = MatchExact
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Null()
	}

	return &Base{
		descriptor: desc,
		driver:     driver,
		url:        target,
		timeouts:   opts.Timeouts.withDefaults(),
		match:      match,
		state:      StateConstructed,
		logger:     logger.WithFields(logrus.Fields{"page": name.String()}),
	}, nil
}

// Name returns the registry entry the page was built from.
func (b *Base) Name() entities.PageName { return b.descriptor.Name }

// Title returns the human-readable page title from the registry.
func (b *Base) Title() string { return b.descriptor.Title }

// URL returns the absolute URL the page navigates to.
func (b *Base) URL() string { return b.url }

// State returns the current lifecycle state.
func (b *Base) State() State { return b.state }

// Timeouts returns the bounds in effect, defaults applied.
func (b *Base) Timeouts() Timeouts { return b.timeouts }

// Released reports whether the page gave up its driver.
func (b *Base) Released() bool { return b.state == StateReleased }

// Release ends the page's ownership of the driver. It does not close the
// driver; the session that created it does. Release is idempotent.
func (b *Base) Release() {
	if b.state == StateReleased {
		return
	}
	b.state = StateReleased
	b.driver = nil
	b.logger.Debug("page released")
}

// Guard fails when the page may not act: released or not yet navigated.
func (b *Base) Guard() error {
	switch b.state {
	case StateReleased:
		return fmt.Errorf("%s: %w", b.descriptor.Name, entities.ErrReleased)
	case StateConstructed:
		return fmt.Errorf("%s: %w", b.descriptor.Name, entities.ErrNotNavigated)
	}
	return nil
}

// Navigate loads the page URL and verifies the browser landed on it.
// It is bounded by the navigation timeout; when the bound elapses the
// browser may still be loading, since aborting is up to the driver.
// Once the driver was asked to load the URL, any failure puts the page
// back in Constructed: the browser may show another document, so
// actions fail with ErrNotNavigated until Navigate succeeds again.
func (b *Base) Navigate(ctx context.Context) error {
	if b.state == StateReleased {
		return fmt.Errorf("%s: %w", b.descriptor.Name, entities.ErrReleased)
	}

	timeout := b.timeouts.Navigation
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	log := b.logger.WithField("url", b.url)
	log.Debug("navigating")

	if err := b.driver.Navigate(navCtx, b.url, timeout); err != nil {
		b.state = StateConstructed
		kind := navigationKind(err)
		log.WithError(err).WithField("kind", kind).Warn("navigation failed")
		return &entities.NavigationError{Kind: kind, URL: b.url, Timeout: timeout, Err: err}
	}

	current, err := b.driver.CurrentURL(navCtx)
	if err != nil {
		b.state = StateConstructed
		kind := navigationKind(err)
		log.WithError(err).WithField("kind", kind).Warn("reading location failed")
		return &entities.NavigationError{Kind: kind, URL: b.url, Timeout: timeout, Err: err}
	}
	if !b.match(b.url, current) {
		b.state = StateConstructed
		log.WithField("current", current).Warn("navigation landed elsewhere")
		return &entities.NavigationError{Kind: entities.NavigationMismatch, URL: b.url, Current: current, Timeout: timeout}
	}

	b.state = StateNavigated
	log.WithField("elapsed", time.Since(start)).Debug("navigated")
	return nil
}

func navigationKind(err error) entities.NavigationErrorKind {
	if errors.Is(err, entities.ErrDriverTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return entities.NavigationTimeout
	}
	return entities.NavigationDriverFailure
}

const arrivePollInterval = 50 * time.Millisecond

// Arrive waits, within the navigation timeout, until the browser is on
// the page URL after an in-page action moved it there. Like Navigate, a
// failure leaves the page Constructed.
func (b *Base) Arrive(ctx context.Context) error {
	if b.state == StateReleased {
		return fmt.Errorf("%s: %w", b.descriptor.Name, entities.ErrReleased)
	}
	b.state = StateConstructed

	timeout := b.timeouts.Navigation
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(arrivePollInterval)
	defer ticker.Stop()

	var current string
	for {
		got, err := b.driver.CurrentURL(waitCtx)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return &entities.NavigationError{Kind: entities.NavigationDriverFailure, URL: b.url, Timeout: timeout, Err: err}
		}
		if err == nil {
			current = got
			if b.match(b.url, current) {
				b.state = StateNavigated
				return nil
			}
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return &entities.NavigationError{Kind: entities.NavigationDriverFailure, URL: b.url, Current: current, Timeout: timeout, Err: ctx.Err()}
			}
			return &entities.NavigationError{Kind: entities.NavigationTimeout, URL: b.url, Current: current, Timeout: timeout, Err: waitCtx.Err()}
		case <-ticker.C:
		}
	}
}

// Ready waits until selector is attached (appear timeout) and then
// visible (interactive timeout). A wait running out of time becomes
// *entities.ElementNotReadyError; any other driver failure is returned as is.
func (b *Base) Ready(ctx context.Context, selector string) (interfaces.Locator, error) {
	if err := b.Guard(); err != nil {
		return nil, err
	}

	loc := b.driver.Locate(selector)
	start := time.Now()

	if err := b.driver.WaitFor(ctx, loc, entities.StatePresent, b.timeouts.Appear); err != nil {
		return nil, b.notReady(selector, entities.StatePresent, 0, b.timeouts.Appear, err)
	}
	appeared := time.Since(start)

	if err := b.driver.WaitFor(ctx, loc, entities.StateVisible, b.timeouts.Interactive); err != nil {
		return nil, b.notReady(selector, entities.StateVisible, appeared, b.timeouts.Interactive, err)
	}
	return loc, nil
}

func (b *Base) notReady(selector string, state entities.ElementState, spent, budget time.Duration, err error) error {
	var waitErr *entities.WaitError
	if !errors.As(err, &waitErr) {
		return err
	}
	if waitErr.Timeout > 0 {
		budget = waitErr.Timeout
	}
	notReady := &entities.ElementNotReadyError{
		Selector: selector,
		State:    state,
		Elapsed:  spent + budget,
		Err:      err,
	}
	b.logger.WithFields(logrus.Fields{
		"selector": selector,
		"state":    state,
		"elapsed":  notReady.Elapsed,
	}).Warn("element not ready")
	return notReady
}

// Do waits for selector to be actionable and performs action on it.
// The action itself is bounded by the action timeout.
func (b *Base) Do(ctx context.Context, selector string, action entities.ActionKind, args ...string) error {
	loc, err := b.Ready(ctx, selector)
	if err != nil {
		return err
	}

	actCtx, cancel := context.WithTimeout(ctx, b.timeouts.Action)
	defer cancel()

	log := b.logger.WithFields(logrus.Fields{"selector": selector, "action": action})
	log.Debug("acting")
	if err := b.driver.Act(actCtx, loc, action, args...); err != nil {
		if errors.Is(err, entities.ErrDriverTimeout) || errors.Is(err, context.DeadlineExceeded) {
			log.WithField("timeout", b.timeouts.Action).Warn("action timed out")
		}
		return err
	}
	return nil
}

// Read reads selector immediately, without waiting. An absent element
// yields found == false.
func (b *Base) Read(ctx context.Context, selector string, what entities.ReadTarget) (string, bool, error) {
	if err := b.Guard(); err != nil {
		return "", false, err
	}
	return b.driver.Read(ctx, b.driver.Locate(selector), what)
}

// Text waits up to the probe timeout for selector to attach and returns
// its text. Absence is reported as found == false, never as an error.
func (b *Base) Text(ctx context.Context, selector string) (string, bool, error) {
	if err := b.Guard(); err != nil {
		return "", false, err
	}

	loc := b.driver.Locate(selector)
	present, err := b.probe(ctx, loc, entities.StatePresent)
	if err != nil || !present {
		return "", false, err
	}
	return b.driver.Read(ctx, loc, entities.ReadText())
}

// Probe reports whether selector becomes visible within the probe timeout.
// Absence is false; driver failures are returned.
func (b *Base) Probe(ctx context.Context, selector string) (bool, error) {
	if err := b.Guard(); err != nil {
		return false, err
	}
	return b.probe(ctx, b.driver.Locate(selector), entities.StateVisible)
}

func (b *Base) probe(ctx context.Context, loc interfaces.Locator, state entities.ElementState) (bool, error) {
	err := b.driver.WaitFor(ctx, loc, state, b.timeouts.Probe)
	if err == nil {
		return true, nil
	}
	var waitErr *entities.WaitError
	if errors.As(err, &waitErr) {
		b.logger.WithField("selector", loc.Selector()).Debug("probe found nothing")
		return false, nil
	}
	return false, err
}

// Driver returns the owned driver, or nil once released.
func (b *Base) Driver() interfaces.Driver { return b.driver }
