package domain

import (
	"fmt"
	"strings"
)

// DefaultTailLines is used whenever a request asks for zero lines
const DefaultTailLines uint = 100

// LogTarget identifies the container whose log is being tailed
type LogTarget struct {
	Namespace string `json:"namespace"`
	PodName   string `json:"pod"`
}

// String renders the target as namespace/pod
func (t LogTarget) String() string {
	return t.Namespace + "/" + t.PodName
}

// IsZero reports whether no target has been selected
func (t LogTarget) IsZero() bool {
	return t.Namespace == "" && t.PodName == ""
}

// Validate checks that both coordinates are present and usable as URL path segments
func (t LogTarget) Validate() error {
	if strings.TrimSpace(t.Namespace) == "" {
		return fmt.Errorf("namespace is required")
	}
	if strings.TrimSpace(t.PodName) == "" {
		return fmt.Errorf("pod name is required")
	}
	if strings.ContainsRune(t.Namespace, '/') || strings.ContainsRune(t.PodName, '/') {
		return fmt.Errorf("invalid target %q: names must not contain '/'", t.String())
	}
	return nil
}

// TailRequest asks for the last TailLines lines of a target's log
type TailRequest struct {
	Target    LogTarget `json:"target"`
	TailLines uint      `json:"tail_lines"`
}

// Normalize substitutes DefaultTailLines for a zero line count
func (r TailRequest) Normalize() TailRequest {
	r.TailLines = NormalizeTailLines(r.TailLines)
	return r
}

// NormalizeTailLines maps 0 to DefaultTailLines and leaves other values alone
func NormalizeTailLines(n uint) uint {
	if n == 0 {
		return DefaultTailLines
	}
	return n
}
