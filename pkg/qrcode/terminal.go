package qrcode

import (
	"io"

	"github.com/mdp/qrterminal/v3"
)

// Terminal writes a half-block preview of text to w. The preview uses
// rsc.io/qr regardless of the configured backend.
func Terminal(w io.Writer, text string, level Level) error {
	rl, err := level.rsc()
	if err != nil {
		return err
	}
	qrterminal.GenerateHalfBlock(text, rl, w)
	return nil
}
