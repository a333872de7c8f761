package input

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/mpapenbr/ovalrace/log"
)

// ReadKeyEvents feeds ks from line based key events read from r:
// "+w" presses w, "-w" releases it, "0" releases all keys.
// Several events may share a line separated by blanks.
// Returns when r is exhausted or ctx is done.
func ReadKeyEvents(ctx context.Context, r io.Reader, ks *KeyState) error {
	l := log.Default().Named("input")
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		for _, tok := range strings.Fields(scanner.Text()) {
			if !applyEvent(ks, tok) {
				l.Debug("ignoring key event", log.String("event", tok))
			}
		}
	}
	return scanner.Err()
}

func applyEvent(ks *KeyState, tok string) bool {
	switch {
	case tok == "0":
		ks.Reset()
		return true
	case strings.HasPrefix(tok, "+"):
		return ks.KeyDown(tok[1:])
	case strings.HasPrefix(tok, "-"):
		return ks.KeyUp(tok[1:])
	default:
		return false
	}
}
