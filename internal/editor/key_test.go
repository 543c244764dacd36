package editor

import (
	"testing"

	"github.com/loocode/loo/internal/testutil"
)

// TestDecodeControlBytes verifies single-byte control keys.
func TestDecodeControlBytes(testingHandle *testing.T) {
	cases := []struct {
		input byte
		want  keyKind
	}{
		{13, keyEnter},
		{10, keyEnter},
		{9, keyTab},
		{127, keyBackspace},
		{8, keyBackspace},
		{3, keyCtrlC},
		{4, keyCtrlD},
		{21, keyCtrlU},
		{11, keyCtrlK},
		{23, keyCtrlW},
		{25, keyCtrlY},
	}
	for _, testCase := range cases {
		key, used := decodeKey([]byte{testCase.input})
		testutil.RequireEqual(testingHandle, used, 1, "one byte consumed")
		testutil.RequireEqual(testingHandle, key.Kind, testCase.want, "control byte mapping")
	}
}

// TestDecodeCursorSequences verifies CSI and SS3 cursor keys.
func TestDecodeCursorSequences(testingHandle *testing.T) {
	cases := []struct {
		input string
		want  keyKind
	}{
		{"\x1b[A", keyUp},
		{"\x1b[B", keyDown},
		{"\x1b[C", keyRight},
		{"\x1b[D", keyLeft},
		{"\x1b[H", keyHome},
		{"\x1b[F", keyEnd},
		{"\x1bOH", keyHome},
		{"\x1b[3~", keyDelete},
		{"\x1b[1~", keyHome},
		{"\x1b[4~", keyEnd},
		{"\x1b[1;5C", keyWordRight},
		{"\x1b[1;5D", keyWordLeft},
	}
	for _, testCase := range cases {
		key, used := decodeKey([]byte(testCase.input))
		testutil.RequireEqual(testingHandle, used, len(testCase.input), "full sequence consumed")
		testutil.RequireEqual(testingHandle, key.Kind, testCase.want, "sequence mapping for "+testCase.input[1:])
	}
}

// TestDecodeAltChords verifies Alt-modified word keys.
func TestDecodeAltChords(testingHandle *testing.T) {
	key, used := decodeKey([]byte{asciiEsc, 'b'})
	testutil.RequireEqual(testingHandle, used, 2, "alt chord consumed")
	testutil.RequireEqual(testingHandle, key.Kind, keyWordLeft, "alt+b moves word left")

	key, _ = decodeKey([]byte{asciiEsc, 'f'})
	testutil.RequireEqual(testingHandle, key.Kind, keyWordRight, "alt+f moves word right")

	key, _ = decodeKey([]byte{asciiEsc, 'd'})
	testutil.RequireEqual(testingHandle, key.Kind, keyDeleteWord, "alt+d deletes word")
}

// TestDecodeRunes verifies plain and multi-byte character input.
func TestDecodeRunes(testingHandle *testing.T) {
	key, used := decodeKey([]byte("a"))
	testutil.RequireEqual(testingHandle, used, 1, "ascii consumed")
	testutil.RequireEqual(testingHandle, key.Rune, 'a', "ascii rune")

	key, used = decodeKey([]byte("🎯"))
	testutil.RequireEqual(testingHandle, used, 4, "emoji consumed")
	testutil.RequireEqual(testingHandle, key.Rune, '🎯', "emoji rune")

	key, used = decodeKey([]byte("é"))
	testutil.RequireEqual(testingHandle, used, 2, "accented rune consumed")
	testutil.RequireEqual(testingHandle, key.Rune, 'é', "accented rune")
}

// TestDecodeIncomplete verifies partial sequences request more bytes.
func TestDecodeIncomplete(testingHandle *testing.T) {
	_, used := decodeKey([]byte{asciiEsc})
	testutil.RequireEqual(testingHandle, used, 0, "lone escape waits for more")

	_, used = decodeKey([]byte{asciiEsc, '['})
	testutil.RequireEqual(testingHandle, used, 0, "open CSI waits for final byte")

	_, used = decodeKey([]byte{0xf0, 0x9f})
	testutil.RequireEqual(testingHandle, used, 0, "partial rune waits for more")

	_, used = decodeKey(nil)
	testutil.RequireEqual(testingHandle, used, 0, "empty buffer")
}
