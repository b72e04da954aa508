package sse

import (
	"testing"
)

func FuzzParserFeed(f *testing.F) {
	f.Add("data: hello\n\n", 3)
	f.Add("data: a\r\ndata: b\r\n\r\n: c\n\n", 1)
	f.Add("event: x\n\ndata:\n\n", 5)
	f.Add("not an event", 2)
	f.Add("data: a\r\rdata: b\r\r", 1)

	f.Fuzz(func(t *testing.T, s string, step int) {
		if step <= 0 {
			step = 1
		}
		whole := NewParser().Feed([]byte(s))

		p := NewParser()
		var chunked []string
		raw := []byte(s)
		for i := 0; i < len(raw); i += step {
			end := i + step
			if end > len(raw) {
				end = len(raw)
			}
			chunked = append(chunked, p.Feed(raw[i:end])...)
		}

		if len(whole) != len(chunked) {
			t.Fatalf("whole=%q chunked=%q", whole, chunked)
		}
		for i := range whole {
			if whole[i] != chunked[i] {
				t.Fatalf("payload %d: whole=%q chunked=%q", i, whole[i], chunked[i])
			}
			if whole[i] == "" {
				t.Fatalf("empty payload emitted")
			}
		}
	})
}
