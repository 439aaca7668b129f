package extraction

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAll(t *testing.T, raw []byte) string {
	t.Helper()
	r, err := newUTF8Reader(bytes.NewReader(raw))
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestUTF8ReaderStripsBOM(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Description,Amount\n")...)
	assert.Equal(t, "Description,Amount\n", decodeAll(t, raw))
}

func TestUTF8ReaderPassesPlainUTF8(t *testing.T) {
	in := "Déscription,Montant\nCourse Montréal,10.50\n"
	assert.Equal(t, in, decodeAll(t, []byte(in)))
}

func TestUTF8ReaderDecodesUTF16LE(t *testing.T) {
	var raw []byte
	raw = append(raw, 0xFF, 0xFE)
	for _, r := range "a,b\n" {
		raw = append(raw, byte(r), 0x00)
	}
	assert.Equal(t, "a,b\n", decodeAll(t, raw))
}

func TestUTF8ReaderDecodesWindows1252(t *testing.T) {
	// "Montréal" with 0xE9 for é, invalid as UTF-8.
	raw := []byte("Course Montr\xe9al,10.50\n")
	assert.Equal(t, "Course Montréal,10.50\n", decodeAll(t, raw))
}
