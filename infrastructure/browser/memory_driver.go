package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pom_automation/domain/entities"
	"pom_automation/domain/interfaces"
)

const memoryPollInterval = 5 * time.Millisecond

// Element is the scripted state of one selector in a MemoryDriver document
type Element struct {
	Hidden bool
	Text   string
	Attrs  map[string]string
}

// Route describes the document served for a URL
type Route struct {
	Status     int
	RedirectTo string
	Elements   map[string]Element
}

// Call records one driver invocation
type Call struct {
	Op       string
	Selector string
	URL      string
	Args     []string
}

type actionKey struct {
	selector string
	action   entities.ActionKind
}

// MemoryDriver is an in-process Driver over a scripted document model.
// It serves dry runs and tests; no browser is involved.
type MemoryDriver struct {
	mu       sync.Mutex
	routes   map[string]Route
	current  string
	elements map[string]Element
	hooks    map[actionKey]func(*MemoryDriver)
	faults   map[string]error
	hangs    map[string]bool
	calls    []Call
	hub      *EventHub
	closed   bool
}

// NewMemoryDriver - creates an empty in-memory driver on about:blank
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		routes:   make(map[string]Route),
		current:  "about:blank",
		elements: make(map[string]Element),
		hooks:    make(map[actionKey]func(*MemoryDriver)),
		faults:   make(map[string]error),
		hangs:    make(map[string]bool),
		hub:      NewEventHub(),
	}
}

// AddRoute serves route when url is loaded
func (d *MemoryDriver) AddRoute(url string, route Route) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes[url] = route
}

// OnAction runs fn after action succeeds on selector
func (d *MemoryDriver) OnAction(selector string, action entities.ActionKind, fn func(*MemoryDriver)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks[actionKey{selector, action}] = fn
}

// SetElement adds or replaces an element in the current document
func (d *MemoryDriver) SetElement(selector string, el Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements[selector] = el
}

// RemoveElement detaches an element from the current document
func (d *MemoryDriver) RemoveElement(selector string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.elements, selector)
}

// Element returns the current state of selector
func (d *MemoryDriver) Element(selector string) (Element, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, ok := d.elements[selector]
	return el, ok
}

// Load replaces the current document without recording a navigation
func (d *MemoryDriver) Load(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loadLocked(url)
}

// FailNext makes the next call of op ("navigate", "url", "wait", "act",
// "read") return err
func (d *MemoryDriver) FailNext(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults[op] = err
}

// Hang makes every call of op block until its context is done
func (d *MemoryDriver) Hang(op string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hangs[op] = true
}

// Calls returns the recorded invocations
func (d *MemoryDriver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Call, len(d.calls))
	copy(out, d.calls)
	return out
}

// Emit dispatches a browser event to subscribers
func (d *MemoryDriver) Emit(evt entities.DriverEvent) {
	d.hub.Dispatch(evt)
}

// begin records the call and applies injected faults
func (d *MemoryDriver) begin(ctx context.Context, call Call) error {
	d.mu.Lock()
	d.calls = append(d.calls, call)
	if d.closed {
		d.mu.Unlock()
		return entities.ErrDriverClosed
	}
	if err, ok := d.faults[call.Op]; ok {
		delete(d.faults, call.Op)
		d.mu.Unlock()
		return err
	}
	hang := d.hangs[call.Op]
	d.mu.Unlock()

	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return ctx.Err()
}

func (d *MemoryDriver) loadLocked(url string) Route {
	route, ok := d.routes[url]
	if !ok {
		route = Route{Status: 404}
	}
	for i := 0; route.RedirectTo != "" && i < 10; i++ {
		url = route.RedirectTo
		route, ok = d.routes[url]
		if !ok {
			route = Route{Status: 404}
		}
	}
	d.current = url
	d.elements = make(map[string]Element, len(route.Elements))
	for sel, el := range route.Elements {
		d.elements[sel] = el
	}
	if route.Status == 0 {
		route.Status = 200
	}
	return route
}

// Navigate - loads the route registered for url
func (d *MemoryDriver) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := d.begin(ctx, Call{Op: "navigate", URL: url}); err != nil {
		return wrapMemoryError("navigate", "", url, err)
	}

	d.mu.Lock()
	route := d.loadLocked(url)
	current := d.current
	d.mu.Unlock()

	d.hub.Dispatch(entities.DriverEvent{Kind: entities.EventResponse, URL: current, Status: route.Status})
	return nil
}

// CurrentURL - returns the loaded URL
func (d *MemoryDriver) CurrentURL(ctx context.Context) (string, error) {
	if err := d.begin(ctx, Call{Op: "url"}); err != nil {
		return "", wrapMemoryError("url", "", "", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current, nil
}

// Locate - builds a lazy locator
func (d *MemoryDriver) Locate(selector string) interfaces.Locator {
	return locator{selector: selector}
}

// WaitFor - polls the document until the element reaches state
func (d *MemoryDriver) WaitFor(ctx context.Context, loc interfaces.Locator, state entities.ElementState, timeout time.Duration) error {
	sel := loc.Selector()
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := d.begin(waitCtx, Call{Op: "wait", Selector: sel, Args: []string{string(state)}}); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return &entities.WaitError{Selector: sel, State: state, Timeout: timeout, Err: err}
		}
		return wrapMemoryError("wait", sel, "", err)
	}

	ticker := time.NewTicker(memoryPollInterval)
	defer ticker.Stop()
	for {
		if d.satisfies(sel, state) {
			return nil
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return wrapMemoryError("wait", sel, "", ctx.Err())
			}
			return &entities.WaitError{Selector: sel, State: state, Timeout: timeout}
		case <-ticker.C:
		}
	}
}

func (d *MemoryDriver) satisfies(sel string, state entities.ElementState) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, ok := d.elements[sel]
	switch state {
	case entities.StatePresent:
		return ok
	case entities.StateVisible:
		return ok && !el.Hidden
	case entities.StateGone:
		return !ok
	}
	return false
}

// Act - applies the action to the element and runs its hook
func (d *MemoryDriver) Act(ctx context.Context, loc interfaces.Locator, action entities.ActionKind, args ...string) error {
	sel := loc.Selector()
	if err := d.begin(ctx, Call{Op: "act", Selector: sel, Args: append([]string{string(action)}, args...)}); err != nil {
		return wrapMemoryError("act", sel, "", err)
	}

	d.mu.Lock()
	el, ok := d.elements[sel]
	if !ok || el.Hidden {
		d.mu.Unlock()
		return &entities.DriverError{Op: string(action), Selector: sel, Err: errors.New("element is not attached or not visible")}
	}

	switch action {
	case entities.ActionFill, entities.ActionType:
		if len(args) != 1 {
			d.mu.Unlock()
			return &entities.DriverError{Op: string(action), Selector: sel, Err: fmt.Errorf("expected 1 argument, got %d", len(args))}
		}
		attrs := make(map[string]string, len(el.Attrs)+1)
		for k, v := range el.Attrs {
			attrs[k] = v
		}
		if action == entities.ActionFill {
			attrs["value"] = args[0]
		} else {
			attrs["value"] += args[0]
		}
		el.Attrs = attrs
		d.elements[sel] = el
	case entities.ActionPress:
		if len(args) != 1 {
			d.mu.Unlock()
			return &entities.DriverError{Op: string(action), Selector: sel, Err: fmt.Errorf("expected a key, got %d arguments", len(args))}
		}
	case entities.ActionClick:
	default:
		d.mu.Unlock()
		return &entities.DriverError{Op: string(action), Selector: sel, Err: errors.New("unsupported action")}
	}

	key := actionKey{sel, action}
	if action == entities.ActionPress {
		key = actionKey{PressKey(sel, args[0]), action}
	}
	hook := d.hooks[key]
	d.mu.Unlock()

	if hook != nil {
		hook(d)
	}
	return nil
}

// Read - returns the element text or attribute
func (d *MemoryDriver) Read(ctx context.Context, loc interfaces.Locator, what entities.ReadTarget) (string, bool, error) {
	sel := loc.Selector()
	if err := d.begin(ctx, Call{Op: "read", Selector: sel, Args: []string{what.String()}}); err != nil {
		return "", false, wrapMemoryError("read", sel, "", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	el, ok := d.elements[sel]
	if !ok {
		return "", false, nil
	}
	if what.IsText() {
		return el.Text, true, nil
	}
	v, ok := el.Attrs[what.Attribute]
	return v, ok, nil
}

// OnEvent - subscribes to emitted events
func (d *MemoryDriver) OnEvent(kind entities.EventKind, handler func(entities.DriverEvent)) func() {
	return d.hub.Subscribe(kind, handler)
}

// Close - marks the driver closed and drops subscriptions
func (d *MemoryDriver) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.hub.Close()
	return nil
}

// PressKey is the hook key OnAction uses for a press of key on selector
func PressKey(selector, key string) string {
	return strings.TrimSpace(selector) + " " + key
}

func wrapMemoryError(op, selector, url string, err error) error {
	var driverErr *entities.DriverError
	var waitErr *entities.WaitError
	if errors.As(err, &driverErr) || errors.As(err, &waitErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", entities.ErrDriverTimeout, err)
	}
	return &entities.DriverError{Op: op, Selector: selector, URL: url, Err: err}
}

var _ interfaces.Driver = (*MemoryDriver)(nil)
