package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"

	"pom_automation/domain/entities"
	"pom_automation/domain/interfaces"
	"pom_automation/infrastructure/config"
)

const seleniumPollInterval = 100 * time.Millisecond

// SeleniumDriver drives Chrome through chromedriver. WebDriver has no push
// events, so subscriptions are accepted but never fire.
type SeleniumDriver struct {
	wd      selenium.WebDriver
	service *selenium.Service
	store   interfaces.SessionStore
	hub     *EventHub
	logger  logrus.FieldLogger

	pendingCookies []selenium.Cookie

	closeOnce sync.Once
	closeErr  error
}

// findChromeDriver - finds ChromeDriver executable path
func findChromeDriver(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured, nil
		}
		return "", fmt.Errorf("chromedriver not found at %s", configured)
	}

	commonPaths := []string{
		"/usr/local/bin/chromedriver",
		"/usr/bin/chromedriver",
		"/opt/homebrew/bin/chromedriver",
		filepath.Join(os.Getenv("HOME"), "bin", "chromedriver"),
	}
	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if path, err := exec.LookPath("chromedriver"); err == nil {
		return path, nil
	}

	return "", errors.New("chromedriver not found; install it or set CHROMEDRIVER_PATH")
}

// freePort asks the kernel for an unused TCP port
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// LaunchSelenium - starts chromedriver and opens a session
func LaunchSelenium(cfg config.Config, store interfaces.SessionStore, logger *logrus.Logger) (*SeleniumDriver, error) {
	driverPath, err := findChromeDriver(cfg.ChromeDriverPath)
	if err != nil {
		return nil, err
	}
	logger.Debugf("Using ChromeDriver at: %s", driverPath)

	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve chromedriver port: %w", err)
	}

	service, err := selenium.NewChromeDriverService(driverPath, port)
	if err != nil {
		return nil, fmt.Errorf("failed to start chromedriver: %w", err)
	}

	caps := selenium.Capabilities{
		"browserName": "chrome",
	}
	chromeCaps := chrome.Capabilities{
		Args: []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--window-size=1280,720",
		},
	}
	if cfg.Headless {
		chromeCaps.Args = append(chromeCaps.Args, "--headless=new")
	}
	if cfg.ChromeBinaryPath != "" {
		chromeCaps.Path = cfg.ChromeBinaryPath
	}
	caps.AddChrome(chromeCaps)

	wd, err := selenium.NewRemote(caps, fmt.Sprintf("http://localhost:%d/wd/hub", port))
	if err != nil {
		_ = service.Stop()
		if strings.Contains(err.Error(), "cannot find Chrome binary") {
			return nil, fmt.Errorf("failed to create webdriver: Chrome not found, set CHROME_BINARY_PATH: %w", err)
		}
		return nil, fmt.Errorf("failed to create webdriver: %w", err)
	}

	d := &SeleniumDriver{
		wd:      wd,
		service: service,
		store:   store,
		hub:     NewEventHub(),
		logger:  logger.WithField("driver", "selenium"),
	}

	if store != nil {
		if data, found, err := store.LoadState(); err != nil {
			d.logger.WithError(err).Warn("ignoring unreadable session state")
		} else if found {
			if err := json.Unmarshal(data, &d.pendingCookies); err != nil {
				d.logger.WithError(err).Warn("ignoring malformed session state")
				d.pendingCookies = nil
			}
		}
	}

	return d, nil
}

func wrapSeleniumError(op, selector, url string, err error) error {
	var wdErr *selenium.Error
	if errors.As(err, &wdErr) && (wdErr.Err == "timeout" || wdErr.Err == "script timeout") {
		err = fmt.Errorf("%w: %w", entities.ErrDriverTimeout, err)
	} else if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", entities.ErrDriverTimeout, err)
	}
	return &entities.DriverError{Op: op, Selector: selector, URL: url, Err: err}
}

// Navigate - loads url with the page load timeout set to the bound
func (d *SeleniumDriver) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return wrapSeleniumError("navigate", "", url, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if err := d.wd.SetPageLoadTimeout(timeout); err != nil {
		return wrapSeleniumError("navigate", "", url, err)
	}
	if err := d.wd.Get(url); err != nil {
		return wrapSeleniumError("navigate", "", url, err)
	}

	// cookies can only be added once the browser is on their origin
	if len(d.pendingCookies) > 0 {
		cookies := d.pendingCookies
		d.pendingCookies = nil
		for i := range cookies {
			if err := d.wd.AddCookie(&cookies[i]); err != nil {
				d.logger.WithError(err).WithField("cookie", cookies[i].Name).Debug("failed to restore cookie")
			}
		}
		if err := d.wd.Refresh(); err != nil {
			return wrapSeleniumError("navigate", "", url, err)
		}
	}
	return nil
}

// CurrentURL - returns the browser location
func (d *SeleniumDriver) CurrentURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", wrapSeleniumError("url", "", "", err)
	}
	u, err := d.wd.CurrentURL()
	if err != nil {
		return "", wrapSeleniumError("url", "", "", err)
	}
	return u, nil
}

// Locate - builds a lazy locator
func (d *SeleniumDriver) Locate(selector string) interfaces.Locator {
	return locator{selector: selector}
}

func (d *SeleniumDriver) find(selector string) (selenium.WebElement, error) {
	elements, err := d.wd.FindElements(selenium.ByCSSSelector, selector)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, nil
	}
	return elements[0], nil
}

func (d *SeleniumDriver) check(selector string, state entities.ElementState) (bool, error) {
	el, err := d.find(selector)
	if err != nil {
		return false, err
	}
	switch state {
	case entities.StatePresent:
		return el != nil, nil
	case entities.StateGone:
		return el == nil, nil
	case entities.StateVisible:
		if el == nil {
			return false, nil
		}
		visible, err := el.IsDisplayed()
		if err != nil {
			var wdErr *selenium.Error
			if errors.As(err, &wdErr) && wdErr.Err == "stale element reference" {
				return false, nil
			}
			return false, err
		}
		return visible, nil
	}
	return false, fmt.Errorf("unsupported state %q", state)
}

// WaitFor - polls until the first matching element reaches state
func (d *SeleniumDriver) WaitFor(ctx context.Context, loc interfaces.Locator, state entities.ElementState, timeout time.Duration) error {
	sel := loc.Selector()
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(seleniumPollInterval)
	defer ticker.Stop()
	for {
		ok, err := d.check(sel, state)
		if err != nil {
			return wrapSeleniumError("wait", sel, "", err)
		}
		if ok {
			return nil
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return wrapSeleniumError("wait", sel, "", ctx.Err())
			}
			return &entities.WaitError{Selector: sel, State: state, Timeout: timeout}
		case <-ticker.C:
		}
	}
}

var seleniumKeys = map[string]string{
	"Enter":      selenium.EnterKey,
	"Tab":        selenium.TabKey,
	"Escape":     selenium.EscapeKey,
	"Backspace":  selenium.BackspaceKey,
	"Delete":     selenium.DeleteKey,
	"ArrowUp":    selenium.UpArrowKey,
	"ArrowDown":  selenium.DownArrowKey,
	"ArrowLeft":  selenium.LeftArrowKey,
	"ArrowRight": selenium.RightArrowKey,
	"Space":      selenium.SpaceKey,
}

// Act - performs action on the first matching element
func (d *SeleniumDriver) Act(ctx context.Context, loc interfaces.Locator, action entities.ActionKind, args ...string) error {
	sel := loc.Selector()
	if err := ctx.Err(); err != nil {
		return wrapSeleniumError(string(action), sel, "", err)
	}

	el, err := d.find(sel)
	if err != nil {
		return wrapSeleniumError(string(action), sel, "", err)
	}
	if el == nil {
		return &entities.DriverError{Op: string(action), Selector: sel, Err: errors.New("no such element")}
	}

	switch action {
	case entities.ActionClick:
		err = el.Click()
	case entities.ActionFill:
		if len(args) != 1 {
			return &entities.DriverError{Op: string(action), Selector: sel, Err: fmt.Errorf("expected 1 argument, got %d", len(args))}
		}
		if err = el.Clear(); err == nil {
			err = el.SendKeys(args[0])
		}
	case entities.ActionType:
		if len(args) != 1 {
			return &entities.DriverError{Op: string(action), Selector: sel, Err: fmt.Errorf("expected 1 argument, got %d", len(args))}
		}
		err = el.SendKeys(args[0])
	case entities.ActionPress:
		if len(args) != 1 {
			return &entities.DriverError{Op: string(action), Selector: sel, Err: fmt.Errorf("expected a key, got %d arguments", len(args))}
		}
		key, ok := seleniumKeys[args[0]]
		if !ok {
			key = args[0]
		}
		err = el.SendKeys(key)
	default:
		return &entities.DriverError{Op: string(action), Selector: sel, Err: errors.New("unsupported action")}
	}
	if err != nil {
		return wrapSeleniumError(string(action), sel, "", err)
	}
	return nil
}

// Read - reads text or an attribute; an absent element is not an error
func (d *SeleniumDriver) Read(ctx context.Context, loc interfaces.Locator, what entities.ReadTarget) (string, bool, error) {
	sel := loc.Selector()
	if err := ctx.Err(); err != nil {
		return "", false, wrapSeleniumError("read", sel, "", err)
	}

	el, err := d.find(sel)
	if err != nil {
		return "", false, wrapSeleniumError("read", sel, "", err)
	}
	if el == nil {
		return "", false, nil
	}

	if what.IsText() {
		text, err := el.Text()
		if err != nil {
			return "", false, wrapSeleniumError("read", sel, "", err)
		}
		return text, true, nil
	}

	value, err := el.GetAttribute(what.Attribute)
	if err != nil {
		// WebDriver answers a missing attribute with a null value
		if strings.Contains(err.Error(), "nil return value") {
			return "", false, nil
		}
		return "", false, wrapSeleniumError("read", sel, "", err)
	}
	return value, true, nil
}

// OnEvent - WebDriver pushes no events; the subscription is inert
func (d *SeleniumDriver) OnEvent(kind entities.EventKind, handler func(entities.DriverEvent)) func() {
	return d.hub.Subscribe(kind, handler)
}

// SaveState - persists the session cookies
func (d *SeleniumDriver) SaveState() error {
	if d.store == nil {
		return nil
	}
	cookies, err := d.wd.GetCookies()
	if err != nil {
		return fmt.Errorf("failed to read cookies: %w", err)
	}
	data, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}
	return d.store.SaveState(data)
}

// Close - saves cookies, quits the browser and stops chromedriver
func (d *SeleniumDriver) Close() error {
	d.closeOnce.Do(func() {
		d.hub.Close()

		var errs []error
		if err := d.SaveState(); err != nil {
			errs = append(errs, err)
		}
		if err := d.wd.Quit(); err != nil {
			errs = append(errs, fmt.Errorf("failed to quit webdriver: %w", err))
		}
		if err := d.service.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop chromedriver: %w", err))
		}
		d.closeErr = errors.Join(errs...)
	})
	return d.closeErr
}

var _ interfaces.Driver = (*SeleniumDriver)(nil)
