// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"fmt"
)

// ButtonMask represents the state of pointer buttons in a pointer event.
type ButtonMask uint8

// Button mask constants for standard mouse buttons and scroll wheel events.
const (
	ButtonLeft ButtonMask = 1 << iota
	ButtonMiddle
	ButtonRight
	Button4 // wheel forward
	Button5 // wheel backward
	Button6
	Button7
	Button8
)

// PointerInput is a pointer move or button change in surface coordinates.
type PointerInput struct {
	X, Y   float64
	Left   bool
	Middle bool
	Right  bool
}

// Mask returns the button mask for the pressed buttons.
func (p PointerInput) Mask() ButtonMask {
	var m ButtonMask
	if p.Left {
		m |= ButtonLeft
	}
	if p.Middle {
		m |= ButtonMiddle
	}
	if p.Right {
		m |= ButtonRight
	}
	return m
}

// WheelInput is a wheel rotation in surface coordinates. Ticks is positive
// for forward rotation and negative for backward; each tick is one event.
type WheelInput struct {
	X, Y  float64
	Ticks int
}

// Mask returns the wheel button for the rotation direction, or 0 for none.
func (w WheelInput) Mask() ButtonMask {
	switch {
	case w.Ticks > 0:
		return Button4
	case w.Ticks < 0:
		return Button5
	}
	return 0
}

// KeyInput is a local key transition.
type KeyInput struct {
	Key  Key
	Mods Modifiers
}

// SpecialKeys names the key combinations that cannot be typed locally.
type SpecialKeys int

// Special key combinations.
const (
	SpecialCtrl SpecialKeys = iota
	SpecialAlt
	SpecialCtrlAltDel
	SpecialAltF4
	SpecialCtrlEsc
)

func (s SpecialKeys) String() string {
	switch s {
	case SpecialCtrl:
		return "Ctrl"
	case SpecialAlt:
		return "Alt"
	case SpecialCtrlAltDel:
		return "Ctrl+Alt+Del"
	case SpecialAltF4:
		return "Alt+F4"
	case SpecialCtrlEsc:
		return "Ctrl+Esc"
	default:
		return fmt.Sprintf("SpecialKeys(%d)", int(s))
	}
}

// Keysyms returns the keys of the combination in press order.
func (s SpecialKeys) Keysyms() ([]uint32, error) {
	switch s {
	case SpecialCtrl:
		return []uint32{XKControlL}, nil
	case SpecialAlt:
		return []uint32{XKAltL}, nil
	case SpecialCtrlAltDel:
		return []uint32{XKControlL, XKAltL, XKDelete}, nil
	case SpecialAltF4:
		return []uint32{XKAltL, XKF4}, nil
	case SpecialCtrlEsc:
		return []uint32{XKControlL, XKEscape}, nil
	default:
		return nil, argumentError("SpecialKeys.Keysyms", fmt.Sprintf("unknown special key combination %d", int(s)))
	}
}

// KeyWriter sends a single key transition.
type KeyWriter interface {
	WriteKeyboardEvent(keysym uint32, down bool) error
}

// PressKeys presses keysyms in order and, when release is set, releases
// them in reverse order.
func PressKeys(w KeyWriter, keysyms []uint32, release bool) error {
	for _, sym := range keysyms {
		if err := w.WriteKeyboardEvent(sym, true); err != nil {
			return err
		}
	}
	if !release {
		return nil
	}
	for i := len(keysyms) - 1; i >= 0; i-- {
		if err := w.WriteKeyboardEvent(keysyms[i], false); err != nil {
			return err
		}
	}
	return nil
}
