package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	name     string
	received []EventContext
	handles  bool
}

func (rl *recordingListener) onEvent(context EventContext) bool {
	rl.received = append(rl.received, context)
	return rl.handles
}

func setupEvents(t *testing.T) {
	t.Helper()
	require.True(t, EventInitialize())
	t.Cleanup(func() {
		require.NoError(t, EventShutdown())
	})
}

// setupInput brings the input system into a known clean state. The
// sync.Once guards only run on the first test, so the state reset goes
// through the package internals.
func setupInput(t *testing.T) {
	t.Helper()
	setupEvents(t)
	require.NoError(t, InputInitialize())
	inputInitialized = true
	inputState = &InputState{}
}

func TestEventRegisterAndFire(t *testing.T) {
	setupEvents(t)

	listener := &recordingListener{name: "quit"}
	require.True(t, EventRegister(EVENT_CODE_APPLICATION_QUIT, listener, listener.onEvent))

	handled := EventFire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT})
	assert.False(t, handled, "a listener returning false leaves the event unhandled")
	require.Len(t, listener.received, 1)
	assert.Equal(t, EVENT_CODE_APPLICATION_QUIT, listener.received[0].Type)
}

func TestEventDuplicateRegistrationIsRejected(t *testing.T) {
	setupEvents(t)

	listener := &recordingListener{name: "dup"}
	require.True(t, EventRegister(EVENT_CODE_KEY_PRESSED, listener, listener.onEvent))
	assert.False(t, EventRegister(EVENT_CODE_KEY_PRESSED, listener, listener.onEvent))

	EventFire(EventContext{Type: EVENT_CODE_KEY_PRESSED, Data: &KeyEvent{KeyCode: KEY_A}})
	assert.Len(t, listener.received, 1)
}

func TestEventFirstHandlerStopsDelivery(t *testing.T) {
	setupEvents(t)

	first := &recordingListener{name: "first", handles: true}
	second := &recordingListener{name: "second"}
	require.True(t, EventRegister(EVENT_CODE_RESIZED, first, first.onEvent))
	require.True(t, EventRegister(EVENT_CODE_RESIZED, second, second.onEvent))

	handled := EventFire(EventContext{
		Type: EVENT_CODE_RESIZED,
		Data: &ResizeEvent{Width: 800, Height: 600},
	})
	assert.True(t, handled)
	assert.Len(t, first.received, 1)
	assert.Empty(t, second.received, "delivery stops at the first handler")
}

func TestEventDeliveryContinuesPastUnhandled(t *testing.T) {
	setupEvents(t)

	first := &recordingListener{name: "first"}
	second := &recordingListener{name: "second", handles: true}
	require.True(t, EventRegister(EVENT_CODE_MOUSE_MOVED, first, first.onEvent))
	require.True(t, EventRegister(EVENT_CODE_MOUSE_MOVED, second, second.onEvent))

	assert.True(t, EventFire(EventContext{Type: EVENT_CODE_MOUSE_MOVED, Data: &MouseEvent{PosX: 1, PosY: 2}}))
	assert.Len(t, first.received, 1)
	assert.Len(t, second.received, 1)
}

func TestEventUnregister(t *testing.T) {
	setupEvents(t)

	listener := &recordingListener{name: "gone"}
	require.True(t, EventRegister(EVENT_CODE_KEY_RELEASED, listener, listener.onEvent))
	assert.True(t, EventUnregister(EVENT_CODE_KEY_RELEASED, listener))
	assert.False(t, EventUnregister(EVENT_CODE_KEY_RELEASED, listener))

	EventFire(EventContext{Type: EVENT_CODE_KEY_RELEASED, Data: &KeyEvent{KeyCode: KEY_B}})
	assert.Empty(t, listener.received)
}

func TestEventFireWithoutListeners(t *testing.T) {
	setupEvents(t)
	assert.False(t, EventFire(EventContext{Type: EVENT_CODE_MOUSE_WHEEL}))
}

func TestInputProcessKeyFiresTypedEvent(t *testing.T) {
	setupInput(t)

	listener := &recordingListener{name: "keys"}
	require.True(t, EventRegister(EVENT_CODE_KEY_PRESSED, listener, listener.onEvent))

	require.NoError(t, InputProcessKey(KEY_A, true))
	require.Len(t, listener.received, 1)
	keyEvent, ok := listener.received[0].Data.(*KeyEvent)
	require.True(t, ok, "key events carry a *KeyEvent payload")
	assert.Equal(t, KEY_A, keyEvent.KeyCode)

	// A repeat with no state change is swallowed.
	require.NoError(t, InputProcessKey(KEY_A, true))
	assert.Len(t, listener.received, 1)

	released := &recordingListener{name: "releases"}
	require.True(t, EventRegister(EVENT_CODE_KEY_RELEASED, released, released.onEvent))
	require.NoError(t, InputProcessKey(KEY_A, false))
	assert.Len(t, released.received, 1)
}

func TestInputKeyEdgeDetection(t *testing.T) {
	setupInput(t)

	require.NoError(t, InputProcessKey(KEY_SPACE, true))
	assert.True(t, InputIsKeyDown(KEY_SPACE))
	assert.False(t, InputWasKeyDown(KEY_SPACE))
	assert.True(t, InputWasKeyUp(KEY_SPACE))

	require.NoError(t, InputUpdate(0.016))
	assert.True(t, InputIsKeyDown(KEY_SPACE))
	assert.True(t, InputWasKeyDown(KEY_SPACE))

	require.NoError(t, InputProcessKey(KEY_SPACE, false))
	assert.True(t, InputIsKeyUp(KEY_SPACE))
	assert.True(t, InputWasKeyDown(KEY_SPACE))
}

func TestInputMouseButtonsAndPosition(t *testing.T) {
	setupInput(t)

	buttons := &recordingListener{name: "buttons"}
	moves := &recordingListener{name: "moves"}
	require.True(t, EventRegister(EVENT_CODE_BUTTON_PRESSED, buttons, buttons.onEvent))
	require.True(t, EventRegister(EVENT_CODE_MOUSE_MOVED, moves, moves.onEvent))

	require.NoError(t, InputProcessButton(BUTTON_LEFT, true))
	assert.True(t, InputIsButtonDown(BUTTON_LEFT))
	assert.True(t, InputIsButtonUp(BUTTON_RIGHT))
	require.Len(t, buttons.received, 1)
	mouseEvent := buttons.received[0].Data.(*MouseEvent)
	assert.Equal(t, BUTTON_LEFT, mouseEvent.Button)

	require.NoError(t, InputProcessMouseMove(10, 20))
	x, y := InputGetMousePosition()
	assert.Equal(t, int32(10), x)
	assert.Equal(t, int32(20), y)
	require.Len(t, moves.received, 1)

	// The same position again does not fire another move event.
	require.NoError(t, InputProcessMouseMove(10, 20))
	assert.Len(t, moves.received, 1)

	require.NoError(t, InputUpdate(0.016))
	px, py := InputGetPreviousMousePosition()
	assert.Equal(t, int32(10), px)
	assert.Equal(t, int32(20), py)
	assert.True(t, InputWasButtonDown(BUTTON_LEFT))
}

func TestInputMouseWheelAlwaysFires(t *testing.T) {
	setupInput(t)

	wheel := &recordingListener{name: "wheel"}
	require.True(t, EventRegister(EVENT_CODE_MOUSE_WHEEL, wheel, wheel.onEvent))

	require.NoError(t, InputProcessMouseWheel(1))
	require.NoError(t, InputProcessMouseWheel(1))
	require.Len(t, wheel.received, 2)
	assert.Equal(t, int8(1), wheel.received[0].Data.(*MouseEvent).Scroll)
}

func TestInputIgnoredWhenShutDown(t *testing.T) {
	setupInput(t)

	listener := &recordingListener{name: "dead"}
	require.True(t, EventRegister(EVENT_CODE_KEY_PRESSED, listener, listener.onEvent))

	inputInitialized = false
	require.NoError(t, InputProcessKey(KEY_Z, true))
	assert.Empty(t, listener.received)
	assert.False(t, InputIsKeyDown(KEY_Z))

	inputInitialized = true
	require.NoError(t, InputProcessKey(KEY_Z, true))
	assert.Len(t, listener.received, 1)
}
