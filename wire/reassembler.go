package wire

// Reassembler turns an unbounded byte stream, delivered in arbitrary
// chunks, back into discrete frames. A frame ends at the first '\n' or
// '\r'; both delimiters are consumed. The trailing partial frame is
// carried over to the next Feed call, so no byte is delivered twice and
// no completed frame is withheld.
//
// One Reassembler serves exactly one open source. Reset it before
// reusing it on a new source so unrelated streams are never stitched
// together.
type Reassembler struct {
	buf []byte
}

func NewReassembler() *Reassembler {
	return &Reassembler{buf: make([]byte, 0, 4096)}
}

// Feed appends a freshly-read chunk and returns the frames it completed,
// in stream order. A zero-length chunk (read timeout) is a no-op.
// Empty frames, such as the gap inside a "\r\n" ending, are dropped.
func (r *Reassembler) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}
	r.buf = append(r.buf, chunk...)

	var frames []string
	start := 0
	for i := 0; i < len(r.buf); i++ {
		if r.buf[i] != '\n' && r.buf[i] != '\r' {
			continue
		}
		if i > start {
			frames = append(frames, string(r.buf[start:i]))
		}
		start = i + 1
	}

	// keep only the unterminated suffix
	r.buf = append(r.buf[:0], r.buf[start:]...)
	return frames
}

// Reset discards any buffered partial frame.
func (r *Reassembler) Reset() {
	r.buf = r.buf[:0]
}

// Pending reports how many bytes of an unterminated frame are buffered.
func (r *Reassembler) Pending() int {
	return len(r.buf)
}
