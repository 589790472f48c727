package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"pom_automation/application/pages"
	"pom_automation/application/registry"
	"pom_automation/application/retry"
	"pom_automation/application/session"
	"pom_automation/domain/entities"
	"pom_automation/domain/interfaces"
	"pom_automation/infrastructure/browser"
	"pom_automation/infrastructure/config"
)

type TerminalInterface struct {
	session *session.Session
	policy  retry.Policy
	logger  logrus.FieldLogger
	reader  *bufio.Reader
	out     io.Writer
}

// NewTerminalInterface - starts the configured driver and wraps it in a session
func NewTerminalInterface(cfg config.Config, logger *logrus.Logger, in io.Reader, out io.Writer) (*TerminalInterface, error) {
	driver, err := browser.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}
	return NewWithSession(session.New(driver, PageOptions(cfg, logger)), Policy(cfg, logger), logger, in, out), nil
}

// NewWithSession - builds the shell over an existing session
func NewWithSession(s *session.Session, policy retry.Policy, logger logrus.FieldLogger, in io.Reader, out io.Writer) *TerminalInterface {
	return &TerminalInterface{
		session: s,
		policy:  policy,
		logger:  logger,
		reader:  bufio.NewReader(in),
		out:     out,
	}
}

// PageOptions maps configuration onto page options
func PageOptions(cfg config.Config, logger logrus.FieldLogger) pages.Options {
	return pages.Options{
		BaseURL: cfg.BaseURL,
		Timeouts: pages.Timeouts{
			Navigation:  cfg.NavigationTimeout,
			Appear:      cfg.AppearTimeout,
			Interactive: cfg.InteractiveTimeout,
			Probe:       cfg.ProbeTimeout,
			Action:      cfg.ActionTimeout,
		},
		Logger: logger,
	}
}

// Policy maps configuration onto the navigation retry policy
func Policy(cfg config.Config, logger logrus.FieldLogger) retry.Policy {
	p := retry.DefaultPolicy()
	p.Attempts = cfg.RetryAttempts
	p.Logger = logger
	return p
}

var (
	red   = color.New(color.FgRed).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
)

func (t *TerminalInterface) printf(format string, args ...any) {
	fmt.Fprintf(t.out, format, args...)
}

func (t *TerminalInterface) Run(ctx context.Context) error {
	t.printf("Page Object Shell\n")
	t.printf("=================\n")
	t.printf("Type 'help' for commands, or 'quit' to exit\n\n")

	for {
		t.printf("> ")
		input, err := t.reader.ReadString('\n')
		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			return err
		}

		fields := strings.Fields(input)
		if len(fields) == 0 {
			if eof {
				return nil
			}
			continue
		}

		cmd, args := fields[0], fields[1:]
		if cmd == "quit" || cmd == "exit" || cmd == "q" {
			t.printf("Bye!\n")
			return nil
		}

		if err := t.execute(ctx, cmd, args); err != nil {
			t.printf("%s %v\n", red("error:"), err)
			t.logger.WithError(err).WithField("command", cmd).Debug("command failed")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if eof {
			return nil
		}
	}
}

func (t *TerminalInterface) execute(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		t.help()
		return nil
	case "pages":
		ListPages(t.out, registry.Default())
		return nil
	case "open":
		return t.open(ctx, args)
	case "login":
		return t.login(ctx, args)
	case "status":
		return t.status(ctx)
	case "error":
		return t.errorMessage(ctx)
	case "projects":
		return t.projects(ctx)
	case "search":
		return t.search(ctx, args)
	case "project":
		return t.project(ctx, args)
	case "heading":
		return t.heading(ctx)
	case "events":
		for _, evt := range t.session.Events() {
			t.printf("%-9s %s %s %s\n", evt.Kind, evt.Type, evt.URL, evt.Text)
		}
		return nil
	}
	return fmt.Errorf("unknown command: %s", cmd)
}

func (t *TerminalInterface) help() {
	t.printf(`Commands:
  pages                       list known pages
  open <page> [projectID]     open and navigate to a page
  login <user> <password>     sign in on the login page
  status                      show whether the user is signed in
  error                       show the login error message
  projects                    list projects
  search <query>              filter the project list
  project <id>                open a project from the list
  heading                     show the open project's title
  events                      show recent browser events
  quit                        exit
`)
}

// ListPages writes the registry table
func ListPages(out io.Writer, reg *registry.Registry) {
	for _, name := range reg.AllNames() {
		desc := reg.Resolve(name)
		fmt.Fprintf(out, "%-14s %-16s %s\n", name, desc.Title, desc.URLTemplate)
	}
}

func (t *TerminalInterface) open(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: open <page> [projectID]")
	}
	name, err := entities.ParsePageName(args[0])
	if err != nil {
		return err
	}
	params := map[string]string{}
	if len(args) > 1 {
		params["projectID"] = args[1]
	}

	page, err := t.session.Open(name, params)
	if err != nil {
		return err
	}
	if err := Visit(ctx, page, t.policy); err != nil {
		return err
	}
	t.printf("on %s (%s)\n", name, page.URL())
	return nil
}

// Visit navigates page, retrying timeouts according to policy
func Visit(ctx context.Context, page interfaces.Page, policy retry.Policy) error {
	return retry.Do(ctx, policy, page.Navigate)
}

func currentAs[T interfaces.Page](s *session.Session, want entities.PageName) (T, error) {
	var zero T
	current := s.Current()
	if current == nil {
		return zero, fmt.Errorf("no page open; run 'open %s' first", want)
	}
	page, ok := current.(T)
	if !ok {
		return zero, fmt.Errorf("current page is %s, not %s", current.Name(), want)
	}
	return page, nil
}

func (t *TerminalInterface) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: login <user> <password>")
	}
	page, err := currentAs[*pages.LoginPage](t.session, entities.PageLogin)
	if err != nil {
		return err
	}
	if err := page.Authenticate(ctx, args[0], args[1]); err != nil {
		return err
	}
	t.printf("credentials submitted\n")
	return nil
}

func (t *TerminalInterface) status(ctx context.Context) error {
	page, err := currentAs[*pages.LoginPage](t.session, entities.PageLogin)
	if err != nil {
		return err
	}
	loggedIn, err := page.IsLoggedIn(ctx)
	if err != nil {
		return err
	}
	if loggedIn {
		t.printf("%s\n", green("logged in"))
	} else {
		t.printf("not logged in\n")
	}
	return nil
}

func (t *TerminalInterface) errorMessage(ctx context.Context) error {
	page, err := currentAs[*pages.LoginPage](t.session, entities.PageLogin)
	if err != nil {
		return err
	}
	msg, shown, err := page.ErrorMessage(ctx)
	if err != nil {
		return err
	}
	if !shown {
		t.printf("no error shown\n")
		return nil
	}
	t.printf("%s\n", msg)
	return nil
}

func (t *TerminalInterface) projects(ctx context.Context) error {
	page, err := currentAs[*pages.ProjectListPage](t.session, entities.PageProjectList)
	if err != nil {
		return err
	}
	list, err := page.Projects(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		t.printf("no projects\n")
	}
	for _, p := range list {
		t.printf("%-6s %s\n", p.ID, p.Name)
	}
	return nil
}

func (t *TerminalInterface) search(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: search <query>")
	}
	page, err := currentAs[*pages.ProjectListPage](t.session, entities.PageProjectList)
	if err != nil {
		return err
	}
	if err := page.Search(ctx, strings.Join(args, " ")); err != nil {
		return err
	}
	return t.projects(ctx)
}

func (t *TerminalInterface) project(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: project <id>")
	}
	page, err := currentAs[*pages.ProjectListPage](t.session, entities.PageProjectList)
	if err != nil {
		return err
	}
	detail, err := page.Open(ctx, args[0])
	if err != nil {
		return err
	}
	if err := t.session.Attach(detail); err != nil {
		return err
	}
	t.printf("on %s (%s)\n", detail.Name(), detail.URL())
	return nil
}

func (t *TerminalInterface) heading(ctx context.Context) error {
	page, err := currentAs[*pages.ProjectDetailPage](t.session, entities.PageProjectDetail)
	if err != nil {
		return err
	}
	title, err := page.Heading(ctx)
	if err != nil {
		return err
	}
	members, err := page.HasMembers(ctx)
	if err != nil {
		return err
	}
	t.printf("%s (members listed: %t)\n", title, members)
	return nil
}

func (t *TerminalInterface) Close() error {
	return t.session.Close()
}
