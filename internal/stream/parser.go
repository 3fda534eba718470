// Package stream turns the agent's newline-delimited JSON output into
// discrete events.
//
// Output arrives from a pipe in arbitrary chunks: a record may be split across
// two reads, several records may arrive in one, or a read may carry nothing
// but part of a record. Parser buffers the incomplete tail between calls and
// only ever emits whole records.
package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// Event is one complete record from the agent's event stream.
type Event struct {
	// Type is the record's top-level "type" field, or empty if it has none.
	Type string

	// Raw is the record's JSON, without the trailing newline.
	Raw json.RawMessage
}

// Decode unmarshals the raw record into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Raw, v)
}

// Parser incrementally splits a chunked byte stream into events.
// The zero value is ready to use. A Parser is not safe for concurrent use.
type Parser struct {
	buf      []byte
	consumed int64
	skipped  int
}

// NewParser returns an empty Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Feed appends chunk to the buffer and returns every complete record it now
// holds, in order. A trailing partial record stays buffered for the next call.
func (p *Parser) Feed(chunk []byte) []Event {
	p.buf = append(p.buf, chunk...)

	var events []Event
	n := 0
	for {
		idx := bytes.IndexByte(p.buf[n:], '\n')
		if idx < 0 {
			break
		}
		line := p.buf[n : n+idx]
		n += idx + 1

		if ev, ok := p.parse(line); ok {
			events = append(events, ev)
		}
	}

	p.advance(n)
	return events
}

// Flush parses whatever remains in the buffer as a final record. Call it once
// the underlying stream has ended without a trailing newline.
func (p *Parser) Flush() []Event {
	if len(p.buf) == 0 {
		return nil
	}
	line := p.buf
	n := len(p.buf)

	var events []Event
	if ev, ok := p.parse(line); ok {
		events = append(events, ev)
	}
	p.advance(n)
	return events
}

// Consumed returns the total number of bytes removed from the buffer so far.
func (p *Parser) Consumed() int64 {
	return p.consumed
}

// Buffered returns the number of bytes waiting for the rest of their record.
func (p *Parser) Buffered() int {
	return len(p.buf)
}

// Skipped returns how many complete but malformed records were dropped.
func (p *Parser) Skipped() int {
	return p.skipped
}

// advance drops the first n bytes of the buffer. The remainder is copied to
// the front so the backing array does not grow without bound.
func (p *Parser) advance(n int) {
	if n == 0 {
		return
	}
	rest := copy(p.buf, p.buf[n:])
	p.buf = p.buf[:rest]
	p.consumed += int64(n)
}

func (p *Parser) parse(line []byte) (Event, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Event{}, false
	}
	if !json.Valid(line) {
		p.skipped++
		return Event{}, false
	}

	raw := make(json.RawMessage, len(line))
	copy(raw, line)

	var probe struct {
		Type string `json:"type"`
	}
	// Records that are not objects are still events, just untyped.
	_ = json.Unmarshal(raw, &probe)

	return Event{Type: probe.Type, Raw: raw}, true
}

// DefaultChunkSize is the read size used by Consume.
const DefaultChunkSize = 32 * 1024

// Consume reads r until EOF, feeding each read through a Parser and calling
// fn for every event. It returns the first read error other than io.EOF, or
// the first error returned by fn.
func Consume(r io.Reader, fn func(Event) error) error {
	p := NewParser()
	chunk := make([]byte, DefaultChunkSize)

	for {
		n, readErr := r.Read(chunk)
		if n > 0 {
			for _, ev := range p.Feed(chunk[:n]) {
				if err := fn(ev); err != nil {
					return err
				}
			}
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				return readErr
			}
			break
		}
	}

	for _, ev := range p.Flush() {
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}
