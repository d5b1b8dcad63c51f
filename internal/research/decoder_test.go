package research

import (
	"context"
	"io"
	"strings"
	"testing"
)

func drain(t *testing.T, d *Decoder) []Event {
	t.Helper()
	var events []Event
	for {
		ev, err := d.Next(context.Background())
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		events = append(events, ev)
	}
}

func TestDecoderParsesFramedEvents(t *testing.T) {
	stream := "data: {\"type\":\"phase\",\"data\":\"plan\"}\n" +
		"data: {\"type\":\"answer-chunk\",\"data\":\"Hello\"}\n" +
		"data: [DONE]\n"

	d := NewDecoder(strings.NewReader(stream))
	events := drain(t, d)

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != EventPhase || events[0].Phase != PhasePlan {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[1].Type != EventAnswerChunk || events[1].Chunk != "Hello" {
		t.Fatalf("unexpected second event: %+v", events[1])
	}
	if !d.Done() {
		t.Fatalf("expected sentinel to be recorded")
	}
}

func TestDecoderSkipsMalformedLineBetweenValidOnes(t *testing.T) {
	stream := "data: {\"type\":\"answer-chunk\",\"data\":\"a\"}\n" +
		"data: {\"type\":\"answer-chunk\",\n" +
		"data: {\"type\":\"answer-chunk\",\"data\":\"b\"}\n"

	d := NewDecoder(strings.NewReader(stream))
	events := drain(t, d)

	if len(events) != 2 {
		t.Fatalf("expected malformed line to be skipped, got %d events", len(events))
	}
	if events[0].Chunk != "a" || events[1].Chunk != "b" {
		t.Fatalf("unexpected chunks: %q %q", events[0].Chunk, events[1].Chunk)
	}
}

func TestDecoderIgnoresUnmarkedLines(t *testing.T) {
	stream := ": heartbeat\n" +
		"event: message\n" +
		"\n" +
		"data: {\"type\":\"complete\",\"data\":null}\n"

	d := NewDecoder(strings.NewReader(stream))
	events := drain(t, d)

	if len(events) != 1 || events[0].Type != EventComplete {
		t.Fatalf("expected single complete event, got %+v", events)
	}
}

func TestDecoderIgnoresUnknownEventTypes(t *testing.T) {
	stream := "data: {\"type\":\"heartbeat\",\"data\":123}\n" +
		"data: {\"type\":\"answer-chunk\",\"data\":\"x\"}\n"

	d := NewDecoder(strings.NewReader(stream))
	events := drain(t, d)

	if len(events) != 1 || events[0].Chunk != "x" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestDecoderBuffersLineSplitAcrossChunks(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		pw.Write([]byte("data: {\"type\":\"answer-ch"))
		pw.Write([]byte("unk\",\"data\":\"Hi\"}\n"))
		pw.Write([]byte("data: [DONE]\n"))
		pw.Close()
	}()

	d := NewDecoder(pr)
	events := drain(t, d)

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Chunk != "Hi" {
		t.Fatalf("expected split line to be reassembled, got %q", events[0].Chunk)
	}
}

func TestDecoderParsesFinalLineWithoutNewline(t *testing.T) {
	stream := "data: {\"type\":\"answer-chunk\",\"data\":\"tail\"}"

	d := NewDecoder(strings.NewReader(stream))
	events := drain(t, d)

	if len(events) != 1 || events[0].Chunk != "tail" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestDecoderKeepsParsingAfterSentinel(t *testing.T) {
	// The sentinel ends the logical stream but parsing continues until the
	// transport reports EOF.
	stream := "data: [DONE]\n" +
		"data: {\"type\":\"answer-chunk\",\"data\":\"late\"}\n"

	d := NewDecoder(strings.NewReader(stream))
	events := drain(t, d)

	if !d.Done() {
		t.Fatalf("expected Done after sentinel")
	}
	if len(events) != 1 || events[0].Chunk != "late" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestDecoderNextHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDecoder(strings.NewReader("data: {\"type\":\"complete\",\"data\":null}\n"))
	if _, err := d.Next(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
