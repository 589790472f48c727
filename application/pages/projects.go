package pages

import (
	"context"
	"fmt"
	"strings"

	"pom_automation/domain/entities"
	"pom_automation/domain/interfaces"
)

const (
	projectListContainer = "#project-list"
	projectSearchInput   = "#project-search"
	projectIDAttr        = "data-project-id"
	projectTitle         = ".project-title"
	projectMembers       = ".member-list"

	// upper bound on rows read from one rendered list
	maxProjectRows = 200
)

// ProjectSummary is one row of the project list.
type ProjectSummary struct {
	ID   string
	Name string
}

// ProjectListPage lists the projects visible to the user.
type ProjectListPage struct {
	*Base
	opts Options
}

// NewProjectListPage builds the project list page. It is not navigated.
func NewProjectListPage(driver interfaces.Driver, opts Options) (*ProjectListPage, error) {
	base, err := NewBase(driver, entities.PageProjectList, nil, opts)
	if err != nil {
		return nil, err
	}
	return &ProjectListPage{Base: base, opts: opts}, nil
}

func projectRow(i int) string {
	return fmt.Sprintf("%s > :nth-child(%d)", projectListContainer, i)
}

func projectLink(id string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(id)
	return fmt.Sprintf(`[%s="%s"]`, projectIDAttr, escaped)
}

// Projects reads the rendered rows in order.
func (p *ProjectListPage) Projects(ctx context.Context) ([]ProjectSummary, error) {
	if _, err := p.Ready(ctx, projectListContainer); err != nil {
		return nil, fmt.Errorf("projects: %w", err)
	}

	var out []ProjectSummary
	for i := 1; i <= maxProjectRows; i++ {
		row := projectRow(i)
		name, found, err := p.Read(ctx, row, entities.ReadText())
		if err != nil {
			return nil, fmt.Errorf("projects: row %d: %w", i, err)
		}
		if !found {
			break
		}
		id, _, err := p.Read(ctx, row, entities.ReadAttribute(projectIDAttr))
		if err != nil {
			return nil, fmt.Errorf("projects: row %d: %w", i, err)
		}
		out = append(out, ProjectSummary{ID: id, Name: strings.TrimSpace(name)})
	}
	return out, nil
}

// Search filters the list by query.
func (p *ProjectListPage) Search(ctx context.Context, query string) error {
	if err := p.Do(ctx, projectSearchInput, entities.ActionFill, query); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := p.Do(ctx, projectSearchInput, entities.ActionPress, "Enter"); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return nil
}

// Open clicks the project and hands the driver over to its detail page.
// The list page is released once the browser arrived there. If the click
// went through but the detail page never showed up, the list keeps the
// driver in Constructed state and must be navigated again.
func (p *ProjectListPage) Open(ctx context.Context, projectID string) (*ProjectDetailPage, error) {
	if err := p.Do(ctx, projectLink(projectID), entities.ActionClick); err != nil {
		return nil, fmt.Errorf("open project %s: %w", projectID, err)
	}

	detail, err := NewProjectDetailPage(p.driver, projectID, p.opts)
	if err != nil {
		return nil, err
	}
	if err := detail.Arrive(ctx); err != nil {
		detail.Release()
		p.state = StateConstructed
		p.logger.WithError(err).WithField("project", projectID).Warn("project page did not open")
		return nil, fmt.Errorf("open project %s: %w", projectID, err)
	}
	p.Release()
	return detail, nil
}

// ProjectDetailPage shows one project.
type ProjectDetailPage struct {
	*Base
	projectID string
}

// NewProjectDetailPage builds the detail page of projectID. Unless opts
// sets a matcher, any URL below the project's URL counts as arrived.
func NewProjectDetailPage(driver interfaces.Driver, projectID string, opts Options) (*ProjectDetailPage, error) {
	opts.Match = firstMatch(opts.Match, MatchPrefix)
	base, err := NewBase(driver, entities.PageProjectDetail, map[string]string{"projectID": projectID}, opts)
	if err != nil {
		return nil, err
	}
	return &ProjectDetailPage{Base: base, projectID: projectID}, nil
}

// ProjectID returns the identifier the page was built for.
func (p *ProjectDetailPage) ProjectID() string { return p.projectID }

// Heading returns the project title as rendered.
func (p *ProjectDetailPage) Heading(ctx context.Context) (string, error) {
	loc, err := p.Ready(ctx, projectTitle)
	if err != nil {
		return "", fmt.Errorf("heading: %w", err)
	}
	text, _, err := p.driver.Read(ctx, loc, entities.ReadText())
	if err != nil {
		return "", fmt.Errorf("heading: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// HasMembers reports whether the member list is shown.
func (p *ProjectDetailPage) HasMembers(ctx context.Context) (bool, error) {
	return p.Probe(ctx, projectMembers)
}

func firstMatch(m, fallback URLMatch) URLMatch {
	if m != nil {
		return m
	}
	return fallback
}

var (
	_ interfaces.Page = (*ProjectListPage)(nil)
	_ interfaces.Page = (*ProjectDetailPage)(nil)
)
