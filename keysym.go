// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"strings"
	"unicode"
)

// Key identifies a physical key on the local keyboard.
type Key int

// Local key identifiers.
const (
	KeyUnknown Key = iota
	KeyTab
	KeyEnter
	KeyEscape
	KeyHome
	KeyLeft
	KeyUp
	KeyRight
	KeyDown
	KeyPageUp
	KeyPageDown
	KeyEnd
	KeyInsert
	KeyLeftShift
	KeyRightShift
	KeyLeftAlt
	KeyRightAlt
	KeyLeftCtrl
	KeyRightCtrl
	KeyDelete
	KeyLeftWin
	KeyRightWin
	KeyApps
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyBackspace
	KeySpace
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyMinus
	KeyEquals
	KeyLeftBracket
	KeyRightBracket
	KeyBackslash
	KeySemicolon
	KeyQuote
	KeyComma
	KeyPeriod
	KeySlash
	KeyGrave
)

// Modifiers is the set of modifier states accompanying a key event.
type Modifiers uint8

// Modifier bits.
const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModCapsLock
)

// X11 keysyms used by the encoder.
const (
	XKBackSpace uint32 = 0xff08
	XKTab       uint32 = 0xff09
	XKReturn    uint32 = 0xff0d
	XKEscape    uint32 = 0xff1b
	XKHome      uint32 = 0xff50
	XKLeft      uint32 = 0xff51
	XKUp        uint32 = 0xff52
	XKRight     uint32 = 0xff53
	XKDown      uint32 = 0xff54
	XKPageUp    uint32 = 0xff55
	XKPageDown  uint32 = 0xff56
	XKEnd       uint32 = 0xff57
	XKInsert    uint32 = 0xff63
	XKF1        uint32 = 0xffbe
	XKF4        uint32 = 0xffc1
	XKShiftL    uint32 = 0xffe1
	XKControlL  uint32 = 0xffe3
	XKControlR  uint32 = 0xffe4
	XKAltL      uint32 = 0xffe9
	XKSuperL    uint32 = 0xffeb
	XKSuperR    uint32 = 0xffec
	XKHyperL    uint32 = 0xffee
	XKDelete    uint32 = 0xffff
)

// Both shift keys and both alt keys map to the left keysym.
var controlKeys = map[Key]uint32{
	KeyTab:        XKTab,
	KeyEnter:      XKReturn,
	KeyEscape:     XKEscape,
	KeyHome:       XKHome,
	KeyLeft:       XKLeft,
	KeyUp:         XKUp,
	KeyRight:      XKRight,
	KeyDown:       XKDown,
	KeyPageUp:     XKPageUp,
	KeyPageDown:   XKPageDown,
	KeyEnd:        XKEnd,
	KeyInsert:     XKInsert,
	KeyLeftShift:  XKShiftL,
	KeyRightShift: XKShiftL,
	KeyLeftAlt:    XKAltL,
	KeyRightAlt:   XKAltL,
	KeyLeftCtrl:   XKControlL,
	KeyRightCtrl:  XKControlR,
	KeyDelete:     XKDelete,
	KeyLeftWin:    XKSuperL,
	KeyRightWin:   XKSuperR,
	KeyApps:       XKHyperL,
}

// ControlKeysym returns the keysym for keys that are sent on both press and
// release without localization.
func ControlKeysym(k Key) (uint32, bool) {
	if k >= KeyF1 && k <= KeyF12 {
		return XKF1 + uint32(k-KeyF1), true // #nosec G115 - k-KeyF1 is in [0,11]
	}
	sym, ok := controlKeys[k]
	return sym, ok
}

// RuneKeysym maps a character to its keysym. Latin-1 characters map to
// themselves; everything else uses the Unicode keysym range.
func RuneKeysym(r rune) uint32 {
	if r == '\b' {
		return XKBackSpace
	}
	if r >= 0 && r <= Latin1MaxCodePoint {
		return uint32(r)
	}
	return 0x01000000 | uint32(r) // #nosec G115 - runes are non-negative here
}

const extraPrintable = "~`<>|=+$^"

// printable reports whether a localized character is forwarded as a key.
func printable(r rune) bool {
	switch {
	case r == '\b':
		return true
	case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsPunct(r), unicode.IsSpace(r):
		return true
	}
	return strings.ContainsRune(extraPrintable, r)
}

// Localizer turns a key and its modifiers into the character the local
// keyboard layout would produce.
type Localizer interface {
	Localize(k Key, mods Modifiers) (rune, bool)
}

// LocalizerFunc adapts a function to the Localizer interface.
type LocalizerFunc func(k Key, mods Modifiers) (rune, bool)

// Localize calls f.
func (f LocalizerFunc) Localize(k Key, mods Modifiers) (rune, bool) {
	return f(k, mods)
}

// USLayout is a US QWERTY Localizer. Ctrl and Alt do not change the
// produced character; the modifier keys themselves are sent separately.
var USLayout Localizer = LocalizerFunc(localizeUS)

var usPairs = map[Key][2]rune{
	Key0:            {'0', ')'},
	Key1:            {'1', '!'},
	Key2:            {'2', '@'},
	Key3:            {'3', '#'},
	Key4:            {'4', '$'},
	Key5:            {'5', '%'},
	Key6:            {'6', '^'},
	Key7:            {'7', '&'},
	Key8:            {'8', '*'},
	Key9:            {'9', '('},
	KeyMinus:        {'-', '_'},
	KeyEquals:       {'=', '+'},
	KeyLeftBracket:  {'[', '{'},
	KeyRightBracket: {']', '}'},
	KeyBackslash:    {'\\', '|'},
	KeySemicolon:    {';', ':'},
	KeyQuote:        {'\'', '"'},
	KeyComma:        {',', '<'},
	KeyPeriod:       {'.', '>'},
	KeySlash:        {'/', '?'},
	KeyGrave:        {'`', '~'},
}

func localizeUS(k Key, mods Modifiers) (rune, bool) {
	shift := mods&ModShift != 0
	switch {
	case k >= KeyA && k <= KeyZ:
		r := 'a' + rune(k-KeyA)
		if shift != (mods&ModCapsLock != 0) {
			r = unicode.ToUpper(r)
		}
		return r, true
	case k == KeySpace:
		return ' ', true
	case k == KeyBackspace:
		return '\b', true
	}
	if pair, ok := usPairs[k]; ok {
		if shift {
			return pair[1], true
		}
		return pair[0], true
	}
	return 0, false
}
