// Package sse decodes the event-stream framing used by the follow endpoint.
//
// Events are separated by a blank line. Inside an event, "data:" lines carry
// payload; every other line is ignored. Bytes arrive in arbitrary chunks, so
// the parser carries the unterminated tail of the stream between calls.
package sse

import (
	"bytes"
	"strings"
)

// FieldData is the field marker of payload lines
const FieldData = "data:"

var (
	eventSep = []byte("\n\n")
	crlf     = []byte("\r\n")
	cr       = []byte("\r")
	lf       = []byte("\n")
)

// Parser turns a chunked byte stream into event payloads. A Parser belongs to
// exactly one stream session and is not safe for concurrent use.
type Parser struct {
	residual []byte
}

// NewParser creates a parser with an empty residual
func NewParser() *Parser {
	return &Parser{}
}

// Feed appends chunk to the residual and returns the payload of every event
// completed by it, in order. The trailing incomplete event stays buffered.
func (p *Parser) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}
	p.residual = append(p.residual, chunk...)
	p.normalizeLineEnds()

	var payloads []string
	for {
		idx := bytes.Index(p.residual, eventSep)
		if idx < 0 {
			break
		}
		if payload, ok := extractPayload(p.residual[:idx]); ok {
			payloads = append(payloads, payload)
		}
		p.residual = p.residual[idx+len(eventSep):]
	}

	// Re-home the residual so the backing array of consumed events can be freed.
	if len(p.residual) == 0 {
		p.residual = nil
	} else if cap(p.residual) > 2*len(p.residual)+4096 {
		p.residual = append([]byte(nil), p.residual...)
	}
	return payloads
}

// normalizeLineEnds rewrites "\r\n" and a bare "\r" to "\n". A trailing "\r"
// stays as is until the next chunk shows whether a "\n" follows it.
func (p *Parser) normalizeLineEnds() {
	if bytes.IndexByte(p.residual, '\r') < 0 {
		return
	}
	end := len(p.residual)
	if p.residual[end-1] == '\r' {
		end--
	}
	head := bytes.ReplaceAll(p.residual[:end], crlf, lf)
	head = bytes.ReplaceAll(head, cr, lf)
	if end < len(p.residual) {
		head = append(head, '\r')
	}
	p.residual = head
}

// Residual returns a copy of the bytes not yet resolved into an event
func (p *Parser) Residual() []byte {
	return append([]byte(nil), p.residual...)
}

// Reset discards the residual
func (p *Parser) Reset() {
	p.residual = nil
}

// extractPayload joins the non-empty data lines of one event with "\n".
// ok is false when the event has no payload.
func extractPayload(event []byte) (string, bool) {
	var b strings.Builder
	for _, line := range strings.Split(string(event), "\n") {
		if !strings.HasPrefix(line, FieldData) {
			continue
		}
		data := strings.TrimPrefix(line, FieldData)
		data = strings.TrimPrefix(data, " ")
		if data == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(data)
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}
