package core

import "sync"

// EventCode routes a fired event to its listeners. Application defined
// codes should start beyond 255.
type EventCode uint16

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01
	// Keyboard key pressed. Data is a *KeyEvent.
	EVENT_CODE_KEY_PRESSED EventCode = 0x02
	// Keyboard key released. Data is a *KeyEvent.
	EVENT_CODE_KEY_RELEASED EventCode = 0x03
	// Mouse button pressed. Data is a *MouseEvent.
	EVENT_CODE_BUTTON_PRESSED EventCode = 0x04
	// Mouse button released. Data is a *MouseEvent.
	EVENT_CODE_BUTTON_RELEASED EventCode = 0x05
	// Mouse moved. Data is a *MouseEvent.
	EVENT_CODE_MOUSE_MOVED EventCode = 0x06
	// Mouse wheel scrolled. Data is a *MouseEvent.
	EVENT_CODE_MOUSE_WHEEL EventCode = 0x07
	// Window framebuffer resized. Data is a *ResizeEvent.
	EVENT_CODE_RESIZED EventCode = 0x08

	MAX_EVENT_CODE EventCode = 0xFF
)

// EventContext carries one fired event to its listeners.
type EventContext struct {
	Type EventCode
	Data interface{}
}

// KeyEvent is the payload of key pressed/released events.
type KeyEvent struct {
	KeyCode KeyCode
}

// MouseEvent is the payload of button, move and wheel events.
type MouseEvent struct {
	Button Button
	PosX   uint16
	PosY   uint16
	Scroll int8
}

// ResizeEvent is the payload of framebuffer resize events.
type ResizeEvent struct {
	Width  uint32
	Height uint32
}

// FnOnEvent handles a fired event. Returning true marks the event as
// handled and stops delivery to the remaining listeners.
type FnOnEvent func(context EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// The event system runs on the main thread next to the message pump,
// so the registration table needs no locking beyond initialization.
type eventSystemState struct {
	registered map[EventCode][]registeredEvent
}

var onceEvent sync.Once
var eventState *eventSystemState

// EventInitialize prepares the event system. Safe to call more than
// once; later calls keep the existing registrations.
func EventInitialize() bool {
	onceEvent.Do(func() {
		eventState = &eventSystemState{
			registered: make(map[EventCode][]registeredEvent),
		}
	})
	return true
}

// EventShutdown drops every registration. Listener objects are owned
// by their registrars and are not touched.
func EventShutdown() error {
	if eventState != nil {
		eventState.registered = make(map[EventCode][]registeredEvent)
	}
	return nil
}

// EventRegister subscribes a listener to a code. A listener already
// subscribed to the code is not registered again and the call returns
// false.
func EventRegister(code EventCode, listener interface{}, onEvent FnOnEvent) bool {
	if eventState == nil {
		return false
	}
	for _, e := range eventState.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %#x", uint16(code))
			return false
		}
	}
	eventState.registered[code] = append(eventState.registered[code], registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

// EventUnregister removes a listener from a code. Returns false when
// no matching registration exists.
func EventUnregister(code EventCode, listener interface{}) bool {
	if eventState == nil {
		return false
	}
	events := eventState.registered[code]
	for i, e := range events {
		if e.listener == listener {
			eventState.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// EventFire delivers an event to the listeners of its code, in
// registration order, until one of them handles it. Returns true when
// a listener handled the event.
func EventFire(context EventContext) bool {
	if eventState == nil {
		return false
	}
	for _, e := range eventState.registered[context.Type] {
		if e.callback(context) {
			return true
		}
	}
	return false
}
