package device

import "io"

// Step is one scripted outcome of a Replay read.
type Step struct {
	Data []byte
	Err  error
}

// Data scripts a read that delivers the given bytes.
func Data(s string) Step {
	return Step{Data: []byte(s)}
}

// Timeout scripts a read that times out (zero bytes, no error).
func Timeout() Step {
	return Step{}
}

// Fail scripts a read that returns a transient error.
func Fail(err error) Step {
	return Step{Err: err}
}

// Replay is an in-memory Source that plays back a fixed script of read
// outcomes, then reports io.EOF. It exists for tests and offline replay;
// it is not safe for concurrent readers, matching the single-owner
// contract of a real port.
type Replay struct {
	steps  []Step
	pos    int
	closed bool
}

func NewReplay(steps ...Step) *Replay {
	return &Replay{steps: steps}
}

func (r *Replay) Read(buf []byte) (int, error) {
	if r.closed || r.pos >= len(r.steps) {
		return 0, io.EOF
	}
	step := r.steps[r.pos]
	r.pos++
	if step.Err != nil {
		return 0, step.Err
	}
	n := copy(buf, step.Data)
	return n, nil
}

func (r *Replay) Close() error {
	r.closed = true
	return nil
}
