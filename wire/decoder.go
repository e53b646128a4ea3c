package wire

import (
	"fmt"
	"strings"

	"sensorcap/telemetry"
	"sensorcap/utils"
)

// frameTokens is the fixed token count of one wire frame.
const frameTokens = 8

// fieldNames maps token position to the record field it carries.
var fieldNames = [frameTokens]string{
	"timestamp", "temp", "gx", "gy", "gz", "ax", "ay", "az",
}

// DecodeError reports a malformed frame, naming the offending field.
type DecodeError struct {
	Field string
	Token string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s: invalid token %q: %v", e.Field, e.Token, e.Err)
	}
	return fmt.Sprintf("decode %s: invalid token %q", e.Field, e.Token)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeFrame parses one frame of hex wire data into a Record.
//
// Format: 8 comma-separated hexadecimal tokens, each a 32-bit word.
// Token 0 is the raw device counter; tokens 1-7 are IEEE-754 bit
// patterns reinterpreted as float32, so 40A00000 decodes to 5.0 with
// sign, NaN payloads and negative zero preserved bit-for-bit.
//
// On any failure the whole frame is rejected; nothing is partially
// accepted. The only side effect is reading the wall clock for the
// record's SystemTimestamp.
func DecodeFrame(line string) (telemetry.Record, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != frameTokens {
		return telemetry.Record{}, &DecodeError{
			Field: "frame",
			Token: line,
			Err:   fmt.Errorf("expected %d tokens, got %d", frameTokens, len(parts)),
		}
	}

	var words [frameTokens]uint32
	for i, tok := range parts {
		w, err := utils.ParseHexUint32(tok)
		if err != nil {
			return telemetry.Record{}, &DecodeError{Field: fieldNames[i], Token: tok, Err: err}
		}
		words[i] = w
	}

	return telemetry.Record{
		Timestamp:       words[0],
		Temp:            utils.Float32FromBits(words[1]),
		Gx:              utils.Float32FromBits(words[2]),
		Gy:              utils.Float32FromBits(words[3]),
		Gz:              utils.Float32FromBits(words[4]),
		Ax:              utils.Float32FromBits(words[5]),
		Ay:              utils.Float32FromBits(words[6]),
		Az:              utils.Float32FromBits(words[7]),
		SystemTimestamp: utils.NowMillis(),
	}, nil
}
