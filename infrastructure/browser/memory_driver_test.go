package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pom_automation/domain/entities"
	"pom_automation/infrastructure/config"
	"pom_automation/infrastructure/logging"
)

func TestMemoryDriverNavigateFollowsRedirects(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDriver()
	d.AddRoute("http://x.test/", Route{RedirectTo: "http://x.test/home"})
	d.AddRoute("http://x.test/home", Route{Elements: map[string]Element{"h1": {Text: "Home"}}})

	var statuses []int
	unsub := d.OnEvent(entities.EventResponse, func(evt entities.DriverEvent) {
		statuses = append(statuses, evt.Status)
	})
	defer unsub()

	require.NoError(t, d.Navigate(ctx, "http://x.test/", time.Second))
	current, err := d.CurrentURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://x.test/home", current)

	text, found, err := d.Read(ctx, d.Locate("h1"), entities.ReadText())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Home", text)

	require.NoError(t, d.Navigate(ctx, "http://x.test/nowhere", time.Second))
	assert.Equal(t, []int{200, 404}, statuses)
}

func TestMemoryDriverWaitStates(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDriver()
	d.SetElement("#shown", Element{})
	d.SetElement("#hidden", Element{Hidden: true})

	assert.NoError(t, d.WaitFor(ctx, d.Locate("#shown"), entities.StateVisible, 20*time.Millisecond))
	assert.NoError(t, d.WaitFor(ctx, d.Locate("#hidden"), entities.StatePresent, 20*time.Millisecond))
	assert.NoError(t, d.WaitFor(ctx, d.Locate("#absent"), entities.StateGone, 20*time.Millisecond))

	err := d.WaitFor(ctx, d.Locate("#hidden"), entities.StateVisible, 20*time.Millisecond)
	var waitErr *entities.WaitError
	require.ErrorAs(t, err, &waitErr)
	assert.Equal(t, 20*time.Millisecond, waitErr.Timeout)
	assert.Equal(t, entities.StateVisible, waitErr.State)
	assert.ErrorIs(t, err, entities.ErrDriverTimeout)
}

func TestMemoryDriverWaitCanceledByCaller(t *testing.T) {
	d := NewMemoryDriver()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := d.WaitFor(ctx, d.Locate("#never"), entities.StatePresent, time.Minute)
	require.Error(t, err)
	var waitErr *entities.WaitError
	assert.False(t, errors.As(err, &waitErr), "caller cancellation is not an element timeout")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryDriverActions(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDriver()
	d.SetElement("#q", Element{})
	d.SetElement("#hidden", Element{Hidden: true})

	pressed := false
	d.OnAction(PressKey("#q", "Enter"), entities.ActionPress, func(*MemoryDriver) { pressed = true })

	require.NoError(t, d.Act(ctx, d.Locate("#q"), entities.ActionFill, "go"))
	require.NoError(t, d.Act(ctx, d.Locate("#q"), entities.ActionType, "lang"))
	value, found, err := d.Read(ctx, d.Locate("#q"), entities.ReadAttribute("value"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "golang", value)

	require.NoError(t, d.Act(ctx, d.Locate("#q"), entities.ActionPress, "Escape"))
	assert.False(t, pressed)
	require.NoError(t, d.Act(ctx, d.Locate("#q"), entities.ActionPress, "Enter"))
	assert.True(t, pressed)

	var driverErr *entities.DriverError
	assert.ErrorAs(t, d.Act(ctx, d.Locate("#hidden"), entities.ActionClick), &driverErr)
	assert.ErrorAs(t, d.Act(ctx, d.Locate("#missing"), entities.ActionClick), &driverErr)
	assert.ErrorAs(t, d.Act(ctx, d.Locate("#q"), entities.ActionFill), &driverErr)

	_, found, err = d.Read(ctx, d.Locate("#q"), entities.ReadAttribute("title"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryDriverFaults(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDriver()
	d.SetElement("#a", Element{})

	d.FailNext("read", errors.New("socket closed"))
	_, _, err := d.Read(ctx, d.Locate("#a"), entities.ReadText())
	var driverErr *entities.DriverError
	require.ErrorAs(t, err, &driverErr)
	assert.Equal(t, "read", driverErr.Op)

	_, _, err = d.Read(ctx, d.Locate("#a"), entities.ReadText())
	assert.NoError(t, err, "faults fire once")

	d.Hang("navigate")
	err = d.Navigate(ctx, "http://x.test/", 20*time.Millisecond)
	assert.ErrorIs(t, err, entities.ErrDriverTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, d.Close())
	_, err = d.CurrentURL(ctx)
	assert.ErrorIs(t, err, entities.ErrDriverClosed)

	calls := d.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, "url", calls[len(calls)-1].Op)
}

func TestDemoDriverLogin(t *testing.T) {
	ctx := context.Background()
	d := NewDemoDriver("http://demo.test/", "ana", "pw")

	require.NoError(t, d.Navigate(ctx, "http://demo.test/", time.Second))
	current, err := d.CurrentURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://demo.test/login", current)

	require.NoError(t, d.Act(ctx, d.Locate("#username"), entities.ActionFill, "ana"))
	require.NoError(t, d.Act(ctx, d.Locate("#password"), entities.ActionFill, "nope"))
	require.NoError(t, d.Act(ctx, d.Locate("#login-button"), entities.ActionClick))
	_, found, err := d.Read(ctx, d.Locate(".error-message"), entities.ReadText())
	require.NoError(t, err)
	assert.True(t, found)

	require.NoError(t, d.Act(ctx, d.Locate("#password"), entities.ActionFill, "pw"))
	require.NoError(t, d.Act(ctx, d.Locate("#login-button"), entities.ActionClick))
	_, found, err = d.Read(ctx, d.Locate(".user-dashboard"), entities.ReadText())
	require.NoError(t, err)
	assert.True(t, found)
	_, found, err = d.Read(ctx, d.Locate(".error-message"), entities.ReadText())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOpenMemoryBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Driver = config.DriverMemory
	cfg.BaseURL = "http://demo.test"

	d, err := Open(cfg, logging.New(logrus.PanicLevel, nil))
	require.NoError(t, err)
	defer d.Close()

	_, ok := d.(*MemoryDriver)
	assert.True(t, ok)
}
