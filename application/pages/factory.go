package pages

import (
	"fmt"

	"pom_automation/domain/entities"
	"pom_automation/domain/interfaces"
)

// New builds the page object registered under name. Templated pages take
// their URL parameters from params.
func New(name entities.PageName, driver interfaces.Driver, params map[string]string, opts Options) (interfaces.Page, error) {
	switch name {
	case entities.PageLogin:
		return NewLoginPage(driver, opts)
	case entities.PageProjectList:
		return NewProjectListPage(driver, opts)
	case entities.PageProjectDetail:
		return NewProjectDetailPage(driver, params["projectID"], opts)
	}
	return nil, fmt.Errorf("no page object for %s", name)
}
