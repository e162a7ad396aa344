package input

// A source delivers events to the handler passed to Start until Stop is
// called. Running reports whether delivery is still live; a source that
// dies on its own (device unplugged, hook torn down) turns Running
// false without a Stop call. Available probes whether Start could
// succeed at all and is safe to call before Start.

// KeySource is a stream of keyboard events.
type KeySource interface {
	Available() error
	Start(handler func(KeyEvent)) error
	Stop()
	Running() bool
}

// PointerSource is a stream of mouse events.
type PointerSource interface {
	Available() error
	Start(handler func(PointerEvent)) error
	Stop()
	Running() bool
}

// PadSource is a stream of gamepad events.
type PadSource interface {
	Available() error
	Start(handler func(PadEvent)) error
	Stop()
	Running() bool
}

// HotkeySource invokes trigger exactly once, the first time the
// configured key combination is held down.
type HotkeySource interface {
	Available() error
	Start(trigger func()) error
	Stop()
	Running() bool
}
