package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"

	"pom_automation/domain/entities"
	"pom_automation/domain/interfaces"
	"pom_automation/infrastructure/config"
)

type locator struct {
	selector string
}

func (l locator) Selector() string {
	return l.selector
}

// PlaywrightDriver drives one page of a dedicated browser context
type PlaywrightDriver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	store   interfaces.SessionStore
	hub     *EventHub
	logger  logrus.FieldLogger

	closeOnce sync.Once
	closeErr  error
}

// LaunchPlaywright - starts playwright, launches the configured browser
// and opens a single page. Saved session state is restored when store
// holds one.
func LaunchPlaywright(cfg config.Config, store interfaces.SessionStore, logger *logrus.Logger) (*PlaywrightDriver, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	var browserType playwright.BrowserType
	switch cfg.Browser {
	case "firefox":
		browserType = pw.Firefox
	case "webkit":
		browserType = pw.WebKit
	default:
		browserType = pw.Chromium
	}

	browser, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		SlowMo:   playwright.Float(float64(cfg.SlowMo.Milliseconds())),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOptions := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  1280,
			Height: 720,
		},
	}

	if store != nil {
		data, found, err := store.LoadState()
		if err != nil {
			logger.WithError(err).Warn("ignoring unreadable session state")
		} else if found {
			var storageState playwright.StorageState
			if err := json.Unmarshal(data, &storageState); err == nil {
				contextOptions.StorageState = storageState.ToOptionalStorageState()
				logger.WithField("cookies", len(storageState.Cookies)).Debug("restored session state")
			} else {
				logger.WithError(err).Warn("ignoring malformed session state")
			}
		}
	}

	bctx, err := browser.NewContext(contextOptions)
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	d := &PlaywrightDriver{
		pw:      pw,
		browser: browser,
		context: bctx,
		page:    page,
		store:   store,
		hub:     NewEventHub(),
		logger:  logger.WithField("driver", "playwright"),
	}
	d.listen()

	return d, nil
}

// listen registers one playwright listener per event kind and forwards
// to the hub
func (d *PlaywrightDriver) listen() {
	d.page.OnConsole(func(msg playwright.ConsoleMessage) {
		d.hub.Dispatch(entities.DriverEvent{
			Kind: entities.EventConsole,
			Type: msg.Type(),
			Text: msg.Text(),
		})
	})

	d.page.OnPageError(func(err error) {
		d.hub.Dispatch(entities.DriverEvent{
			Kind: entities.EventPageError,
			Text: err.Error(),
		})
	})

	d.page.OnResponse(func(response playwright.Response) {
		d.hub.Dispatch(entities.DriverEvent{
			Kind:   entities.EventResponse,
			URL:    response.URL(),
			Status: response.Status(),
		})
	})

	d.page.OnDialog(func(dialog playwright.Dialog) {
		d.hub.Dispatch(entities.DriverEvent{
			Kind: entities.EventDialog,
			Type: dialog.Type(),
			Text: dialog.Message(),
		})

		if err := dialog.Accept(); err != nil {
			d.logger.WithError(err).Debug("failed to accept dialog")
		}
	})
}

// used when an action arrives without a deadline
const defaultActionTimeout = 30 * time.Second

// boundedTimeout clamps timeout to what remains of ctx, in milliseconds
func boundedTimeout(ctx context.Context, timeout time.Duration) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return 0, context.DeadlineExceeded
	}
	return float64(timeout.Milliseconds()), nil
}

func wrapPlaywrightError(op, selector, url string, err error) error {
	if errors.Is(err, playwright.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", entities.ErrDriverTimeout, err)
	}
	return &entities.DriverError{Op: op, Selector: selector, URL: url, Err: err}
}

// Navigate - loads url and waits for the load event
func (d *PlaywrightDriver) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	ms, err := boundedTimeout(ctx, timeout)
	if err != nil {
		return wrapPlaywrightError("navigate", "", url, err)
	}

	_, err = d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(ms),
	})
	if err != nil {
		if strings.Contains(err.Error(), "ERR_TOO_MANY_REDIRECTS") {
			err = fmt.Errorf("redirect loop: %w", err)
		}
		return wrapPlaywrightError("navigate", "", url, err)
	}
	return nil
}

// CurrentURL - returns the page URL
func (d *PlaywrightDriver) CurrentURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", wrapPlaywrightError("url", "", "", err)
	}
	return d.page.URL(), nil
}

// Locate - builds a lazy locator
func (d *PlaywrightDriver) Locate(selector string) interfaces.Locator {
	return locator{selector: selector}
}

func (d *PlaywrightDriver) first(loc interfaces.Locator) playwright.Locator {
	return d.page.Locator(loc.Selector()).First()
}

// WaitFor - waits for the first matching element to reach state
func (d *PlaywrightDriver) WaitFor(ctx context.Context, loc interfaces.Locator, state entities.ElementState, timeout time.Duration) error {
	sel := loc.Selector()
	ms, err := boundedTimeout(ctx, timeout)
	if err != nil {
		return wrapPlaywrightError("wait", sel, "", err)
	}

	var pwState *playwright.WaitForSelectorState
	switch state {
	case entities.StatePresent:
		pwState = playwright.WaitForSelectorStateAttached
	case entities.StateVisible:
		pwState = playwright.WaitForSelectorStateVisible
	case entities.StateGone:
		pwState = playwright.WaitForSelectorStateDetached
	default:
		return &entities.DriverError{Op: "wait", Selector: sel, Err: fmt.Errorf("unsupported state %q", state)}
	}

	err = d.first(loc).WaitFor(playwright.LocatorWaitForOptions{
		State:   pwState,
		Timeout: playwright.Float(ms),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return &entities.WaitError{Selector: sel, State: state, Timeout: timeout, Err: err}
		}
		return wrapPlaywrightError("wait", sel, "", err)
	}
	return nil
}

// Act - performs action on the first matching element
func (d *PlaywrightDriver) Act(ctx context.Context, loc interfaces.Locator, action entities.ActionKind, args ...string) error {
	sel := loc.Selector()
	ms, err := boundedTimeout(ctx, defaultActionTimeout)
	if err != nil {
		return wrapPlaywrightError(string(action), sel, "", err)
	}
	timeout := playwright.Float(ms)

	target := d.first(loc)
	switch action {
	case entities.ActionClick:
		err = target.Click(playwright.LocatorClickOptions{Timeout: timeout})
	case entities.ActionFill:
		if len(args) != 1 {
			return &entities.DriverError{Op: string(action), Selector: sel, Err: fmt.Errorf("expected 1 argument, got %d", len(args))}
		}
		err = target.Fill(args[0], playwright.LocatorFillOptions{Timeout: timeout})
	case entities.ActionType:
		if len(args) != 1 {
			return &entities.DriverError{Op: string(action), Selector: sel, Err: fmt.Errorf("expected 1 argument, got %d", len(args))}
		}
		err = target.PressSequentially(args[0], playwright.LocatorPressSequentiallyOptions{Timeout: timeout})
	case entities.ActionPress:
		if len(args) != 1 {
			return &entities.DriverError{Op: string(action), Selector: sel, Err: fmt.Errorf("expected a key, got %d arguments", len(args))}
		}
		err = target.Press(args[0], playwright.LocatorPressOptions{Timeout: timeout})
	default:
		return &entities.DriverError{Op: string(action), Selector: sel, Err: errors.New("unsupported action")}
	}
	if err != nil {
		return wrapPlaywrightError(string(action), sel, "", err)
	}
	return nil
}

// Read - reads text or an attribute; an absent element is not an error
func (d *PlaywrightDriver) Read(ctx context.Context, loc interfaces.Locator, what entities.ReadTarget) (string, bool, error) {
	sel := loc.Selector()
	if err := ctx.Err(); err != nil {
		return "", false, wrapPlaywrightError("read", sel, "", err)
	}

	all := d.page.Locator(sel)
	count, err := all.Count()
	if err != nil {
		return "", false, wrapPlaywrightError("read", sel, "", err)
	}
	if count == 0 {
		return "", false, nil
	}

	if what.IsText() {
		text, err := all.First().TextContent()
		if err != nil {
			return "", false, wrapPlaywrightError("read", sel, "", err)
		}
		return text, true, nil
	}

	value, err := all.First().GetAttribute(what.Attribute)
	if err != nil {
		return "", false, wrapPlaywrightError("read", sel, "", err)
	}
	// playwright reports a missing attribute as an empty string
	if value == "" {
		has, err := all.First().Evaluate("(el, name) => el.hasAttribute(name)", what.Attribute)
		if err != nil {
			return "", false, wrapPlaywrightError("read", sel, "", err)
		}
		if ok, _ := has.(bool); !ok {
			return "", false, nil
		}
	}
	return value, true, nil
}

// OnEvent - subscribes to page events
func (d *PlaywrightDriver) OnEvent(kind entities.EventKind, handler func(entities.DriverEvent)) func() {
	return d.hub.Subscribe(kind, handler)
}

// SaveState - persists cookies and local storage
func (d *PlaywrightDriver) SaveState() error {
	if d.context == nil || d.store == nil {
		return nil
	}

	state, err := d.context.StorageState()
	if err != nil {
		if isClosedError(err) {
			return nil
		}
		return fmt.Errorf("failed to read browser state: %w", err)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode browser state: %w", err)
	}
	return d.store.SaveState(data)
}

// Close - saves state and tears down page, context, browser and playwright
func (d *PlaywrightDriver) Close() error {
	d.closeOnce.Do(func() {
		d.hub.Close()

		var errs []error
		if err := d.SaveState(); err != nil {
			errs = append(errs, err)
		}
		if err := d.context.Close(); err != nil && !isClosedError(err) {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
		if err := d.browser.Close(); err != nil && !isClosedError(err) {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
		if err := d.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		d.closeErr = errors.Join(errs...)
	})
	return d.closeErr
}

func isClosedError(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "closed") || strings.Contains(errStr, "target closed")
}

var _ interfaces.Driver = (*PlaywrightDriver)(nil)
