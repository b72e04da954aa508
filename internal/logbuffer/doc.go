// Package logbuffer holds the text shown for the current log target: the
// snapshot, followed by every chunk streamed since follow was enabled.
//
// The buffer is unbounded for the lifetime of one view; switching target or
// closing the view resets it. Readers always observe whole chunks.
package logbuffer
