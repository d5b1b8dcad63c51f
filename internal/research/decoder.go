package research

import (
	"bufio"
	"context"
	"io"
	"strings"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// Decoder turns a raw byte stream into discrete events. Lines are framed
// `data: <json>\n`; lines without the marker are ignored and malformed JSON
// on any single line is skipped, so one corrupt event never loses the rest
// of the response. Partial lines at chunk boundaries are handled by the
// buffered reader, which only yields a line once its newline has arrived.
type Decoder struct {
	r    *bufio.Reader
	done bool
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Done reports whether the [DONE] sentinel has been seen. The sentinel marks
// the logical end of the stream; Next keeps parsing defensively until the
// transport itself reports io.EOF.
func (d *Decoder) Done() bool {
	return d.done
}

// Next returns the next well-formed event, or io.EOF once the underlying
// stream ends. The context is checked between reads so a caller can abandon
// an in-flight stream.
func (d *Decoder) Next(ctx context.Context) (Event, error) {
	for {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		default:
		}

		line, err := d.r.ReadString('\n')

		// A final line without a trailing newline still counts.
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			if ev, ok := d.decodeLine(trimmed); ok {
				return ev, nil
			}
		}

		if err != nil {
			if err == io.EOF {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
	}
}

func (d *Decoder) decodeLine(line string) (Event, bool) {
	if !strings.HasPrefix(line, dataPrefix) {
		return Event{}, false
	}

	payload := strings.TrimPrefix(line, dataPrefix)
	if payload == doneSentinel {
		d.done = true
		return Event{}, false
	}

	ev, err := ParseEvent([]byte(payload))
	if err != nil {
		// Skip malformed events.
		return Event{}, false
	}
	return ev, true
}
