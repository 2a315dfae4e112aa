package view

import "net/url"

// EventSubmit is the type of form submission events.
const EventSubmit = "submit"

// Event is a user event delivered to the view by the host.
type Event struct {
	Type string
	// Values carries submitted form values. Fields missing here are read
	// from the form in the rendered tree.
	Values url.Values

	defaultPrevented bool
}

// NewSubmit returns a submit event carrying the given form values.
func NewSubmit(values url.Values) *Event {
	return &Event{Type: EventSubmit, Values: values}
}

// PreventDefault suppresses the host's default action for the event.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether a handler called PreventDefault.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }
