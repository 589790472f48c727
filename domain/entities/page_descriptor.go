package entities

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// PageName identifies one screen known to the page registry.
// The set of names is closed: only the values declared below exist,
// and the zero value is invalid.
type PageName struct {
	key string
}

var (
	PageLogin         = PageName{key: "login"}
	PageProjectList   = PageName{key: "projectList"}
	PageProjectDetail = PageName{key: "projectDetail"}
)

// PageNames returns every declared page name in declaration order.
func PageNames() []PageName {
	return []PageName{PageLogin, PageProjectList, PageProjectDetail}
}

// ParsePageName maps the textual form of a page name back to its value.
func ParsePageName(s string) (PageName, error) {
	for _, name := range PageNames() {
		if name.key == s {
			return name, nil
		}
	}
	return PageName{}, fmt.Errorf("unknown page name: %q", s)
}

func (n PageName) String() string {
	if n.key == "" {
		return "<invalid>"
	}
	return n.key
}

// IsValid reports whether n is one of the declared names.
func (n PageName) IsValid() bool {
	return n.key != ""
}

// PageDescriptor holds the registry metadata of one page.
type PageDescriptor struct {
	Name        PageName
	Title       string
	URLTemplate string
}

var placeholderRe = regexp.MustCompile(`\{([A-Za-z][A-Za-z0-9_]*)\}`)

// IsTemplated reports whether the URL template carries {param} placeholders.
func (d PageDescriptor) IsTemplated() bool {
	return placeholderRe.MatchString(d.URLTemplate)
}

// Params lists the placeholder names of the URL template in order.
func (d PageDescriptor) Params() []string {
	matches := placeholderRe.FindAllStringSubmatch(d.URLTemplate, -1)
	params := make([]string, 0, len(matches))
	for _, m := range matches {
		params = append(params, m[1])
	}
	return params
}

// Expand substitutes the template placeholders and resolves the result
// against baseURL. Values are path-escaped.
func (d PageDescriptor) Expand(baseURL string, params map[string]string) (string, error) {
	var missing []string
	path := placeholderRe.ReplaceAllStringFunc(d.URLTemplate, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := params[key]
		if !ok || v == "" {
			missing = append(missing, key)
			return m
		}
		return url.PathEscape(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("page %s: missing url parameter(s): %s", d.Name, strings.Join(missing, ", "))
	}

	if baseURL == "" {
		return path, nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("page %s: invalid base url %q: %w", d.Name, baseURL, err)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("page %s: invalid url template %q: %w", d.Name, d.URLTemplate, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	joined := *base
	joined.Path = strings.TrimSuffix(base.Path, "/") + "/" + strings.TrimPrefix(ref.Path, "/")
	joined.RawPath = strings.TrimSuffix(base.EscapedPath(), "/") + "/" + strings.TrimPrefix(ref.EscapedPath(), "/")
	joined.RawQuery = ref.RawQuery
	joined.Fragment = ref.Fragment
	return joined.String(), nil
}
