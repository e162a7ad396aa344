package hook

import "codeberg.org/mutker/capturectl/internal/errors"

const (
	ErrNoInputHook = errors.ErrorCode("hook_no_input")
	ErrNoGamepad   = errors.ErrorCode("hook_no_gamepad")
	ErrEmptyHotkey = errors.ErrorCode("hook_empty_hotkey")
)
