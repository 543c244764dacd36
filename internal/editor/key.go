package editor

import "unicode/utf8"

// keyKind identifies a decoded terminal key.
type keyKind int

const (
	// keyNone marks bytes that decode to nothing actionable.
	keyNone keyKind = iota
	keyRune
	keyEnter
	keyTab
	keyBackspace
	keyDelete
	keyUp
	keyDown
	keyLeft
	keyRight
	keyHome
	keyEnd
	keyWordLeft
	keyWordRight
	keyDeleteWord
	keyEsc
	keyCtrlA
	keyCtrlB
	keyCtrlC
	keyCtrlD
	keyCtrlE
	keyCtrlF
	keyCtrlK
	keyCtrlL
	keyCtrlU
	keyCtrlW
	keyCtrlX
	keyCtrlY
)

// Key is one decoded key event from the raw input stream.
type Key struct {
	// Kind identifies the key.
	Kind keyKind
	// Rune carries the character for keyRune events.
	Rune rune
}

// asciiEsc is the escape byte that introduces terminal sequences.
const asciiEsc = 0x1b

// controlKeys maps raw control bytes to key kinds.
var controlKeys = map[byte]keyKind{
	1:   keyCtrlA,
	2:   keyCtrlB,
	3:   keyCtrlC,
	4:   keyCtrlD,
	5:   keyCtrlE,
	6:   keyCtrlF,
	8:   keyBackspace,
	9:   keyTab,
	10:  keyEnter,
	11:  keyCtrlK,
	12:  keyCtrlL,
	13:  keyEnter,
	21:  keyCtrlU,
	23:  keyCtrlW,
	24:  keyCtrlX,
	25:  keyCtrlY,
	127: keyBackspace,
}

// decodeKey decodes the first key in buffer and returns it together
// with the number of bytes consumed. A zero count means the buffer
// holds an incomplete sequence and more bytes are needed; a lone escape
// byte is reported as incomplete so the caller can distinguish a bare
// Escape press from the start of a sequence by waiting out the poll
// interval.
func decodeKey(buffer []byte) (Key, int) {
	if len(buffer) == 0 {
		return Key{}, 0
	}

	if buffer[0] == asciiEsc {
		return decodeEscape(buffer)
	}

	if kind, ok := controlKeys[buffer[0]]; ok {
		return Key{Kind: kind}, 1
	}
	if buffer[0] < 32 {
		// Unmapped control byte.
		return Key{Kind: keyNone}, 1
	}

	if !utf8.FullRune(buffer) && len(buffer) < utf8.UTFMax {
		return Key{}, 0
	}
	character, size := utf8.DecodeRune(buffer)
	if character == utf8.RuneError && size == 1 {
		return Key{Kind: keyNone}, 1
	}
	return Key{Kind: keyRune, Rune: character}, size
}

// decodeEscape decodes escape-introduced sequences: CSI cursor keys,
// SS3 cursor keys, and Alt-modified letters.
func decodeEscape(buffer []byte) (Key, int) {
	if len(buffer) < 2 {
		return Key{}, 0
	}

	switch buffer[1] {
	case '[':
		return decodeCSI(buffer)
	case 'O':
		if len(buffer) < 3 {
			return Key{}, 0
		}
		return Key{Kind: cursorKey(buffer[2])}, 3
	case 'b':
		return Key{Kind: keyWordLeft}, 2
	case 'f':
		return Key{Kind: keyWordRight}, 2
	case 'd':
		return Key{Kind: keyDeleteWord}, 2
	default:
		// Unknown Alt chord; swallow both bytes.
		return Key{Kind: keyNone}, 2
	}
}

// decodeCSI decodes "ESC [ params final" sequences. The final byte is
// the first byte in the alphabetic/tilde range after the parameters.
func decodeCSI(buffer []byte) (Key, int) {
	for index := 2; index < len(buffer); index++ {
		final := buffer[index]
		if !isCSIFinal(final) {
			if index-2 >= 8 {
				// Runaway sequence; drop the introducer and resync.
				return Key{Kind: keyNone}, 2
			}
			continue
		}
		params := string(buffer[2:index])
		consumed := index + 1
		switch final {
		case 'A', 'B', 'C', 'D', 'H', 'F':
			if params == "1;5" {
				// Ctrl-modified arrows move by words.
				switch final {
				case 'C':
					return Key{Kind: keyWordRight}, consumed
				case 'D':
					return Key{Kind: keyWordLeft}, consumed
				}
			}
			return Key{Kind: cursorKey(final)}, consumed
		case '~':
			switch params {
			case "1", "7":
				return Key{Kind: keyHome}, consumed
			case "3":
				return Key{Kind: keyDelete}, consumed
			case "4", "8":
				return Key{Kind: keyEnd}, consumed
			}
			return Key{Kind: keyNone}, consumed
		default:
			return Key{Kind: keyNone}, consumed
		}
	}
	return Key{}, 0
}

// cursorKey maps a cursor-key final byte to its kind.
func cursorKey(final byte) keyKind {
	switch final {
	case 'A':
		return keyUp
	case 'B':
		return keyDown
	case 'C':
		return keyRight
	case 'D':
		return keyLeft
	case 'H':
		return keyHome
	case 'F':
		return keyEnd
	}
	return keyNone
}

// isCSIFinal reports whether b terminates a CSI sequence.
func isCSIFinal(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '~'
}
