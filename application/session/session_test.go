package session

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pom_automation/application/pages"
	"pom_automation/domain/entities"
	"pom_automation/infrastructure/browser"
)

const baseURL = "http://app.test"

func newSession(t *testing.T) (*Session, *browser.MemoryDriver, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	drv := browser.NewMemoryDriver()
	drv.AddRoute(baseURL+"/login", browser.Route{Elements: map[string]browser.Element{
		"#username": {}, "#password": {}, "#login-button": {},
	}})
	drv.AddRoute(baseURL+"/projects", browser.Route{Elements: map[string]browser.Element{
		"#project-list": {},
	}})

	s := New(drv, pages.Options{
		BaseURL:  baseURL,
		Timeouts: pages.Timeouts{Navigation: 200 * time.Millisecond, Appear: 20 * time.Millisecond, Interactive: 20 * time.Millisecond, Probe: 10 * time.Millisecond},
		Logger:   logger,
	})
	return s, drv, hook
}

func TestOpenReleasesPreviousPage(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newSession(t)

	login, err := s.Open(entities.PageLogin, nil)
	require.NoError(t, err)
	require.NoError(t, login.Navigate(ctx))
	assert.Same(t, login, s.Current())

	list, err := s.Open(entities.PageProjectList, nil)
	require.NoError(t, err)

	assert.True(t, login.Released())
	assert.ErrorIs(t, login.Navigate(ctx), entities.ErrReleased)
	assert.Same(t, list, s.Current())
	require.NoError(t, list.Navigate(ctx))
}

func TestOpenRejectsMissingParams(t *testing.T) {
	s, _, _ := newSession(t)
	login, err := s.Open(entities.PageLogin, nil)
	require.NoError(t, err)

	_, err = s.Open(entities.PageProjectDetail, nil)
	assert.Error(t, err)
	assert.False(t, login.Released(), "a failed open keeps the current page")
}

func TestAttachRefusesSecondLivePage(t *testing.T) {
	s, drv, _ := newSession(t)
	_, err := s.Open(entities.PageLogin, nil)
	require.NoError(t, err)

	other, err := pages.NewProjectListPage(drv, pages.Options{BaseURL: baseURL})
	require.NoError(t, err)

	err = s.Attach(other)
	assert.ErrorIs(t, err, entities.ErrPageOwned)
	assert.True(t, entities.IsContractViolation(err))

	s.Release()
	assert.Nil(t, s.Current())
	require.NoError(t, s.Attach(other))
	assert.Same(t, other, s.Current())

	other.Release()
	assert.ErrorIs(t, s.Attach(other), entities.ErrReleased)
}

func TestAttachRefusesPageOnAnotherDriver(t *testing.T) {
	s, drv, _ := newSession(t)

	foreign, err := pages.NewProjectListPage(browser.NewMemoryDriver(), pages.Options{BaseURL: baseURL})
	require.NoError(t, err)

	err = s.Attach(foreign)
	assert.ErrorIs(t, err, entities.ErrPageOwned)
	assert.Nil(t, s.Current(), "a refused page does not become current")
	assert.False(t, foreign.Released())

	own, err := pages.NewProjectListPage(drv, pages.Options{BaseURL: baseURL})
	require.NoError(t, err)
	require.NoError(t, s.Attach(own))
	assert.Same(t, own, s.Current())
}

func TestEventsAreRecordedAndLogged(t *testing.T) {
	s, drv, hook := newSession(t)

	drv.Emit(entities.DriverEvent{Kind: entities.EventConsole, Type: "log", Text: "hello"})
	drv.Emit(entities.DriverEvent{Kind: entities.EventPageError, Text: "TypeError: x is undefined"})
	drv.Emit(entities.DriverEvent{Kind: entities.EventResponse, URL: baseURL + "/missing", Status: 404})
	drv.Emit(entities.DriverEvent{Kind: entities.EventResponse, URL: baseURL + "/ok", Status: 200})

	events := s.Events()
	require.Len(t, events, 4)
	assert.Equal(t, "hello", events[0].Text)

	var warnings int
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)
}

func TestSessionIDTagsLogs(t *testing.T) {
	s, drv, hook := newSession(t)
	other, _, _ := newSession(t)
	require.Len(t, s.ID(), 8)
	assert.NotEqual(t, s.ID(), other.ID())

	drv.Emit(entities.DriverEvent{Kind: entities.EventPageError, Text: "boom"})
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, s.ID(), entry.Data["session"])
}

func TestEventHistoryIsBounded(t *testing.T) {
	s, drv, _ := newSession(t)
	for i := 0; i < eventHistory+10; i++ {
		drv.Emit(entities.DriverEvent{Kind: entities.EventConsole, Status: i})
	}
	events := s.Events()
	require.Len(t, events, eventHistory)
	assert.Equal(t, 10, events[0].Status)
}

func TestCloseReleasesAndClosesDriver(t *testing.T) {
	ctx := context.Background()
	s, drv, _ := newSession(t)
	login, err := s.Open(entities.PageLogin, nil)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.True(t, login.Released())
	_, err = drv.CurrentURL(ctx)
	assert.ErrorIs(t, err, entities.ErrDriverClosed)

	drv.Emit(entities.DriverEvent{Kind: entities.EventConsole, Text: "late"})
	assert.Empty(t, s.Events())

	_, err = s.Open(entities.PageLogin, nil)
	assert.ErrorIs(t, err, entities.ErrDriverClosed)
}
