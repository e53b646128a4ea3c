package wire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReassemblerMultipleFrames(t *testing.T) {
	r := NewReassembler()

	frames := r.Feed([]byte("alpha\nbravo\ncharlie\n"))
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, frames)
	assert.Equal(t, 0, r.Pending())
}

func TestReassemblerPartialFrameAcrossCalls(t *testing.T) {
	r := NewReassembler()

	frames := r.Feed([]byte("00000123,41200000,3F80"))
	assert.Empty(t, frames)
	assert.Equal(t, 22, r.Pending())

	frames = r.Feed([]byte("0000\n00000124,FFFFFFFF\n"))
	require.Len(t, frames, 2)
	assert.Equal(t, "00000123,41200000,3F800000", frames[0])
	assert.Equal(t, "00000124,FFFFFFFF", frames[1])
	assert.Equal(t, 0, r.Pending())
}

func TestReassemblerNoDelimiter(t *testing.T) {
	r := NewReassembler()

	assert.Empty(t, r.Feed([]byte("abc")))
	assert.Empty(t, r.Feed([]byte("def")))
	assert.Equal(t, 6, r.Pending())

	frames := r.Feed([]byte("\n"))
	assert.Equal(t, []string{"abcdef"}, frames)
}

func TestReassemblerZeroLengthRead(t *testing.T) {
	r := NewReassembler()
	r.Feed([]byte("partial"))

	assert.Empty(t, r.Feed(nil))
	assert.Empty(t, r.Feed([]byte{}))
	assert.Equal(t, 7, r.Pending())
}

func TestReassemblerDelimiters(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "newline", input: "a\nb\n", want: []string{"a", "b"}},
		{name: "carriage return", input: "a\rb\r", want: []string{"a", "b"}},
		{name: "crlf yields no empty frame", input: "a\r\nb\r\n", want: []string{"a", "b"}},
		{name: "mixed", input: "a\nb\rc\r\n", want: []string{"a", "b", "c"}},
		{name: "leading delimiter", input: "\na\n", want: []string{"a"}},
		{name: "only delimiters", input: "\r\n\r\n", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReassembler()
			assert.Equal(t, tt.want, r.Feed([]byte(tt.input)))
			assert.Equal(t, 0, r.Pending())
		})
	}
}

func TestReassemblerEverySplitPoint(t *testing.T) {
	// any split of the input into two chunks yields the same frames as
	// one chunk, nothing duplicated or dropped
	input := "frame-one\nframe-two\rframe-three\r\nframe-four\n"

	whole := NewReassembler().Feed([]byte(input))
	require.Equal(t, []string{"frame-one", "frame-two", "frame-three", "frame-four"}, whole)

	for k := 0; k <= len(input); k++ {
		r := NewReassembler()
		var got []string
		got = append(got, r.Feed([]byte(input[:k]))...)
		got = append(got, r.Feed([]byte(input[k:]))...)

		assert.Equal(t, whole, got, "split at %d", k)
		assert.Equal(t, 0, r.Pending(), "split at %d", k)
	}
}

func TestReassemblerReset(t *testing.T) {
	r := NewReassembler()
	r.Feed([]byte("stale partial from previous source"))
	r.Reset()

	assert.Equal(t, 0, r.Pending())
	frames := r.Feed([]byte("fresh\n"))
	assert.Equal(t, []string{"fresh"}, frames)
}

func TestReassemblerLargeStream(t *testing.T) {
	r := NewReassembler()
	input := strings.Repeat("0123456789ABCDEF\n", 1000)

	var total int
	// drip-feed in 7-byte chunks to force many partial carries
	for i := 0; i < len(input); i += 7 {
		end := i + 7
		if end > len(input) {
			end = len(input)
		}
		total += len(r.Feed([]byte(input[i:end])))
	}

	assert.Equal(t, 1000, total)
	assert.Equal(t, 0, r.Pending())
}
