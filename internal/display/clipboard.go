package display

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var ErrEmptyClipboard = errors.New("nothing to copy")

// Clipboard copies text through the OSC 52 escape sequence, which terminals
// forward to the system clipboard.
type Clipboard struct {
	out io.Writer
}

func NewClipboard(out io.Writer) *Clipboard {
	return &Clipboard{out: out}
}

func (c *Clipboard) Copy(text string) error {
	if text == "" {
		return ErrEmptyClipboard
	}
	_, err := fmt.Fprintf(c.out, "\x1b]52;c;%s\a", base64.StdEncoding.EncodeToString([]byte(text)))
	return err
}
