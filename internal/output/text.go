package output

import (
	"io"
	"strconv"
	"strings"
)

// TextWriter writes log lines and events as styled text
type TextWriter struct {
	w       io.Writer
	noStyle bool
}

// NewTextWriter creates a new text writer
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

// NewPlainTextWriter creates a text writer that never emits ANSI styling
func NewPlainTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w, noStyle: true}
}

// WriteLine outputs one log line, colored by the level it mentions
func (w *TextWriter) WriteLine(line string) error {
	if !w.noStyle {
		if level := DetectLevel(line); level != "" {
			line = LevelStyle(level).Render(line)
		}
	}
	_, err := io.WriteString(w.w, line+"\n")
	return err
}

// WriteStatus outputs a one-line status message such as "following default/web-1"
func (w *TextWriter) WriteStatus(label, message string) error {
	line := label + " " + message + "\n"
	if !w.noStyle {
		line = Styles.Info.Render("["+label+"]") + " " + Styles.Label.Render(message) + "\n"
	}
	_, err := io.WriteString(w.w, line)
	return err
}

// WriteSessionEnd outputs how a follow session finished
func (w *TextWriter) WriteSessionEnd(end *SessionEndOutput) error {
	msg := "stream " + end.State + " (" + strconv.FormatInt(end.Events, 10) + " events)"
	if end.Error != "" {
		msg += ": " + end.Error
	}
	if w.noStyle {
		_, err := io.WriteString(w.w, msg+"\n")
		return err
	}
	style := Styles.Label
	if end.Error != "" {
		style = Styles.Danger
	}
	_, err := io.WriteString(w.w, style.Render(msg)+"\n")
	return err
}

// WriteError outputs a styled error
func (w *TextWriter) WriteError(code, message string) error {
	line := "Error [" + code + "]: " + message + "\n"
	if !w.noStyle {
		line = Styles.Danger.Render("Error") + " " + Styles.Warning.Render("["+code+"]") + ": " + message + "\n"
	}
	_, err := io.WriteString(w.w, line)
	return err
}

// DetectLevel guesses the severity a log line carries from common level tokens.
// It returns "" when nothing recognisable is present.
func DetectLevel(line string) string {
	upper := strings.ToUpper(line)
	switch {
	case containsToken(upper, "FATAL"), containsToken(upper, "PANIC"):
		return "Fault"
	case containsToken(upper, "ERROR"), containsToken(upper, "ERR"):
		return "Error"
	case containsToken(upper, "WARN"), containsToken(upper, "WARNING"):
		return "Warn"
	case containsToken(upper, "DEBUG"), containsToken(upper, "TRACE"):
		return "Debug"
	case containsToken(upper, "INFO"):
		return "Info"
	}
	return ""
}

func containsToken(s, token string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], token)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(token)
		if boundary(s, start-1) && boundary(s, end) {
			return true
		}
		i = start + 1
	}
}

func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_')
}
