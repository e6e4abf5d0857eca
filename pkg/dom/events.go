package dom

// Event is delivered to listeners by Dispatch.
type Event struct {
	// Type is the event name, e.g. "change" or "pointerdown".
	Type string

	// Target is the element the event was dispatched on.
	Target *Element

	// CurrentTarget is the element whose listener is running. Without
	// bubbling it is always Target.
	CurrentTarget *Element
}

// Listener handles an event.
type Listener func(ev *Event)

// AddEventListener registers fn for events of the given type.
func (e *Element) AddEventListener(eventType string, fn Listener) {
	if fn == nil {
		return
	}
	if e.listeners == nil {
		e.listeners = make(map[string][]Listener)
	}
	e.listeners[eventType] = append(e.listeners[eventType], fn)
}

// ListenerCount returns the number of listeners registered for eventType.
// An empty eventType counts listeners of every type.
func (e *Element) ListenerCount(eventType string) int {
	if eventType != "" {
		return len(e.listeners[eventType])
	}
	n := 0
	for _, ls := range e.listeners {
		n += len(ls)
	}
	return n
}

// Dispatch fires an event of the given type on the element and returns the
// number of listeners that ran.
func (e *Element) Dispatch(eventType string) int {
	ls := e.listeners[eventType]
	if len(ls) == 0 {
		return 0
	}
	// Listeners added while dispatching do not see this event.
	ls = append([]Listener(nil), ls...)
	ev := &Event{Type: eventType, Target: e, CurrentTarget: e}
	for _, fn := range ls {
		fn(ev)
	}
	return len(ls)
}
