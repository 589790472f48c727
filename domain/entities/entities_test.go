package entities

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageName(t *testing.T) {
	for _, name := range PageNames() {
		parsed, err := ParsePageName(name.String())
		require.NoError(t, err)
		assert.Equal(t, name, parsed)
		assert.True(t, parsed.IsValid())
	}

	_, err := ParsePageName("Login")
	assert.Error(t, err, "names are case sensitive")

	var zero PageName
	assert.False(t, zero.IsValid())
	assert.Equal(t, "<invalid>", zero.String())
}

func TestExpand(t *testing.T) {
	detail := PageDescriptor{Name: PageProjectDetail, URLTemplate: "/projects/{projectID}"}
	login := PageDescriptor{Name: PageLogin, URLTemplate: "/login"}

	tests := []struct {
		name   string
		desc   PageDescriptor
		base   string
		params map[string]string
		want   string
	}{
		{"plain", login, "https://app.test", nil, "https://app.test/login"},
		{"base with slash", login, "https://app.test/", nil, "https://app.test/login"},
		{"base with path", login, "https://app.test/tracker/", nil, "https://app.test/tracker/login"},
		{"no base", login, "", nil, "/login"},
		{"param", detail, "https://app.test", map[string]string{"projectID": "42"}, "https://app.test/projects/42"},
		{"escaped param", detail, "https://app.test", map[string]string{"projectID": "a/b c"}, "https://app.test/projects/a%2Fb%20c"},
		{"extra params ignored", detail, "https://app.test", map[string]string{"projectID": "1", "tab": "x"}, "https://app.test/projects/1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.desc.Expand(tt.base, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandMissingParam(t *testing.T) {
	detail := PageDescriptor{Name: PageProjectDetail, URLTemplate: "/projects/{projectID}"}
	assert.True(t, detail.IsTemplated())
	assert.Equal(t, []string{"projectID"}, detail.Params())

	_, err := detail.Expand("https://app.test", nil)
	assert.ErrorContains(t, err, "projectID")

	_, err = detail.Expand("https://app.test", map[string]string{"projectID": ""})
	assert.Error(t, err)
}

func TestWaitErrorIsTimeout(t *testing.T) {
	err := fmt.Errorf("login: %w", &WaitError{Selector: "#a", State: StateVisible, Timeout: time.Second})
	assert.ErrorIs(t, err, ErrDriverTimeout)
	assert.True(t, IsTimeout(err))
	assert.False(t, IsContractViolation(err))
}

func TestNavigationErrorKinds(t *testing.T) {
	timeout := &NavigationError{Kind: NavigationTimeout, URL: "u", Timeout: time.Second, Err: context.DeadlineExceeded}
	assert.True(t, IsTimeout(timeout))
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)
	assert.Contains(t, timeout.Error(), "not settled within 1s")

	failure := &NavigationError{Kind: NavigationDriverFailure, URL: "u", Err: &DriverError{Op: "navigate", Err: ErrDriverTimeout}}
	assert.False(t, IsTimeout(failure), "the kind decides, not the wrapped cause")

	var driverErr *DriverError
	assert.ErrorAs(t, failure, &driverErr)

	mismatch := &NavigationError{Kind: NavigationMismatch, URL: "u", Current: "v"}
	assert.Equal(t, "navigate to u: landed on v", mismatch.Error())
}

func TestElementNotReadyUnwraps(t *testing.T) {
	cause := &WaitError{Selector: "#b", State: StatePresent, Timeout: 5 * time.Second}
	err := error(&ElementNotReadyError{Selector: "#b", State: StatePresent, Elapsed: 5 * time.Second, Err: cause})

	var waitErr *WaitError
	require.ErrorAs(t, err, &waitErr)
	assert.Same(t, cause, waitErr)
	assert.True(t, IsTimeout(err))
	assert.Equal(t, `element "#b" not present after 5s`, err.Error())
}

func TestContractViolations(t *testing.T) {
	assert.True(t, IsContractViolation(fmt.Errorf("x: %w", ErrNotNavigated)))
	assert.True(t, IsContractViolation(ErrReleased))
	assert.True(t, IsContractViolation(ErrPageOwned))
	assert.False(t, IsContractViolation(errors.New("other")))
	assert.False(t, IsTimeout(nil))
}

func TestReadTarget(t *testing.T) {
	assert.True(t, ReadText().IsText())
	assert.Equal(t, "text", ReadText().String())
	assert.False(t, ReadAttribute("href").IsText())
	assert.Equal(t, "attribute(href)", ReadAttribute("href").String())
}
