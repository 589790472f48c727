package browser

import (
	"fmt"
	"strings"

	"pom_automation/domain/entities"
)

// Credentials accepted by the demo site when none are configured
const (
	DemoUser     = "demo"
	DemoPassword = "demo"
)

// DemoProject is one project served by the demo site
type DemoProject struct {
	ID      string
	Name    string
	Members []string
}

var demoProjects = []DemoProject{
	{ID: "1", Name: "Checkout redesign", Members: []string{"ana", "li"}},
	{ID: "2", Name: "Billing exports"},
	{ID: "3", Name: "Checkout analytics", Members: []string{"sam"}},
}

func demoRow(i int) string {
	return fmt.Sprintf("#project-list > :nth-child(%d)", i)
}

func demoLink(id string) string {
	return fmt.Sprintf(`[data-project-id="%s"]`, id)
}

func renderProjectList(projects []DemoProject) map[string]Element {
	els := map[string]Element{
		"#project-list":   {},
		"#project-search": {},
	}
	for i, p := range projects {
		els[demoRow(i+1)] = Element{Text: p.Name, Attrs: map[string]string{"data-project-id": p.ID}}
		els[demoLink(p.ID)] = Element{Text: p.Name}
	}
	return els
}

// NewDemoDriver - returns a MemoryDriver serving a small login and project
// site under baseURL. Only user/password signs in.
func NewDemoDriver(baseURL, user, password string) *MemoryDriver {
	base := strings.TrimSuffix(baseURL, "/")
	d := NewMemoryDriver()

	d.AddRoute(base, Route{RedirectTo: base + "/login"})
	d.AddRoute(base+"/", Route{RedirectTo: base + "/login"})
	d.AddRoute(base+"/login", Route{Elements: map[string]Element{
		"#username":     {},
		"#password":     {},
		"#login-button": {Text: "Sign in"},
	}})
	d.OnAction("#login-button", entities.ActionClick, func(d *MemoryDriver) {
		u, _ := d.Element("#username")
		p, _ := d.Element("#password")
		if u.Attrs["value"] == user && p.Attrs["value"] == password {
			d.RemoveElement(".error-message")
			d.SetElement(".user-dashboard", Element{Text: "Signed in as " + user})
			d.Emit(entities.DriverEvent{Kind: entities.EventConsole, Type: "info", Text: "session started"})
			return
		}
		d.SetElement(".error-message", Element{Text: "Invalid username or password"})
		d.Emit(entities.DriverEvent{Kind: entities.EventResponse, URL: base + "/api/session", Status: 401})
	})

	d.AddRoute(base+"/projects", Route{Elements: renderProjectList(demoProjects)})
	d.OnAction(PressKey("#project-search", "Enter"), entities.ActionPress, func(d *MemoryDriver) {
		input, _ := d.Element("#project-search")
		query := strings.ToLower(strings.TrimSpace(input.Attrs["value"]))
		var hits []DemoProject
		for _, p := range demoProjects {
			if strings.Contains(strings.ToLower(p.Name), query) {
				hits = append(hits, p)
			}
		}
		for i := range demoProjects {
			d.RemoveElement(demoRow(i + 1))
			d.RemoveElement(demoLink(demoProjects[i].ID))
		}
		for sel, el := range renderProjectList(hits) {
			if sel != "#project-search" {
				d.SetElement(sel, el)
			}
		}
	})

	for _, p := range demoProjects {
		detail := base + "/projects/" + p.ID
		els := map[string]Element{".project-title": {Text: p.Name}}
		if len(p.Members) > 0 {
			els[".member-list"] = Element{Text: strings.Join(p.Members, ", ")}
		}
		d.AddRoute(detail, Route{Elements: els})
		d.OnAction(demoLink(p.ID), entities.ActionClick, func(d *MemoryDriver) {
			d.Load(detail)
		})
	}

	return d
}
