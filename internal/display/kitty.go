package display

import (
	"encoding/base64"
	"fmt"
	"io"
)

const (
	escapeStart = "\x1b_G"
	escapeEnd   = "\x1b\\"
	chunkSize   = 4096
)

// KittyEncoder writes PNG data using the kitty graphics protocol.
type KittyEncoder struct {
	out  io.Writer
	cols int
}

// NewKittyEncoder returns an encoder. When cols is positive the terminal
// scales the image to that many cells wide.
func NewKittyEncoder(out io.Writer, cols int) *KittyEncoder {
	return &KittyEncoder{out: out, cols: cols}
}

func (e *KittyEncoder) Encode(png []byte) error {
	if len(png) == 0 {
		return nil
	}

	chunks := splitIntoChunks(base64.StdEncoding.EncodeToString(png), chunkSize)
	for i, chunk := range chunks {
		if _, err := fmt.Fprintf(e.out, "%s%s;%s%s", escapeStart, e.params(i, len(chunks)), chunk, escapeEnd); err != nil {
			return err
		}
	}
	return nil
}

// params builds the control data for chunk i of n. Only the first chunk
// carries the transmit action.
func (e *KittyEncoder) params(i, n int) string {
	more := ""
	if n > 1 {
		more = ",m=1"
		if i == n-1 {
			more = ",m=0"
		}
	}
	if i > 0 {
		return more[1:]
	}

	p := "a=T,f=100,q=2"
	if e.cols > 0 {
		p += fmt.Sprintf(",c=%d", e.cols)
	}
	return p + more
}

func splitIntoChunks(s string, size int) []string {
	var chunks []string
	for len(s) > 0 {
		if len(s) < size {
			size = len(s)
		}
		chunks = append(chunks, s[:size])
		s = s[size:]
	}
	return chunks
}
