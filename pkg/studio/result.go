package studio

import (
	"encoding/base64"
	"errors"
)

const (
	EmptyInputMessage      = "Enter some text or a URL to generate a QR code."
	EncodingFailureMessage = "Could not generate QR. Try shorter text or different settings."
)

var (
	ErrEmptyInput      = errors.New(EmptyInputMessage)
	ErrEncodingFailure = errors.New(EncodingFailureMessage)
	ErrSuperseded      = errors.New("revision superseded")
)

type State string

const (
	StateError   State = "error"
	StatePending State = "pending"
	StateReady   State = "ready"
)

// Result is the derived output of one parameter revision. It is always
// replaced as a whole.
type Result struct {
	PNG      []byte
	SVG      string
	Error    string
	Revision uint64
}

func (r Result) State() State {
	switch {
	case r.Error != "":
		return StateError
	case len(r.PNG) > 0 && r.SVG != "":
		return StateReady
	default:
		return StatePending
	}
}

// Err maps the user-facing message back to its sentinel.
func (r Result) Err() error {
	switch r.Error {
	case "":
		return nil
	case EmptyInputMessage:
		return ErrEmptyInput
	default:
		return ErrEncodingFailure
	}
}

// PNGDataURL is the raster as an inline image source, empty when absent.
func (r Result) PNGDataURL() string {
	if len(r.PNG) == 0 {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(r.PNG)
}
