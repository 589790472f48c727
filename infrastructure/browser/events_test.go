package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pom_automation/domain/entities"
)

func TestEventHubDispatchByKind(t *testing.T) {
	hub := NewEventHub()

	var console, dialog []string
	hub.Subscribe(entities.EventConsole, func(e entities.DriverEvent) { console = append(console, e.Text) })
	hub.Subscribe(entities.EventDialog, func(e entities.DriverEvent) { dialog = append(dialog, e.Text) })

	hub.Dispatch(entities.DriverEvent{Kind: entities.EventConsole, Text: "hello"})
	hub.Dispatch(entities.DriverEvent{Kind: entities.EventDialog, Text: "sure?"})
	hub.Dispatch(entities.DriverEvent{Kind: entities.EventResponse, URL: "/x"})

	assert.Equal(t, []string{"hello"}, console)
	assert.Equal(t, []string{"sure?"}, dialog)
}

func TestEventHubUnsubscribe(t *testing.T) {
	hub := NewEventHub()

	calls := 0
	unsubscribe := hub.Subscribe(entities.EventConsole, func(entities.DriverEvent) { calls++ })
	assert.Equal(t, 1, hub.Count(entities.EventConsole))

	hub.Dispatch(entities.DriverEvent{Kind: entities.EventConsole})
	unsubscribe()
	unsubscribe()
	hub.Dispatch(entities.DriverEvent{Kind: entities.EventConsole})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, hub.Count(entities.EventConsole))
}

func TestEventHubHandlerMayUnsubscribeItself(t *testing.T) {
	hub := NewEventHub()

	calls := 0
	var unsubscribe func()
	unsubscribe = hub.Subscribe(entities.EventPageError, func(entities.DriverEvent) {
		calls++
		unsubscribe()
	})

	hub.Dispatch(entities.DriverEvent{Kind: entities.EventPageError})
	hub.Dispatch(entities.DriverEvent{Kind: entities.EventPageError})
	assert.Equal(t, 1, calls)
}

func TestEventHubClose(t *testing.T) {
	hub := NewEventHub()
	hub.Subscribe(entities.EventConsole, func(entities.DriverEvent) { t.Fatal("handler survived Close") })
	hub.Close()

	hub.Dispatch(entities.DriverEvent{Kind: entities.EventConsole})
	hub.Subscribe(entities.EventConsole, func(entities.DriverEvent) { t.Fatal("subscribed after Close") })()
	hub.Dispatch(entities.DriverEvent{Kind: entities.EventConsole})
	assert.Equal(t, 0, hub.Count(entities.EventConsole))
}
