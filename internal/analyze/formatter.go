package analyze

import (
	"strings"
	"unicode"

	"github.com/maxbolgarin/gitsquash/internal/model"
)

var bulletMarkers = []string{"- ", "* ", "• "}

// Formatter enforces subject and body line-length rules on raw messages.
type Formatter struct {
	limits model.MessageLimits
}

func NewFormatter(limits model.MessageLimits) *Formatter {
	return &Formatter{limits: limits}
}

// Format normalizes a raw message: the subject gets its first rune
// capitalized, one trailing period stripped and is truncated to the subject
// limit; body lines are wrapped to the body width with bullet continuations
// indented by two spaces. Trailing blank lines are removed. Formatting an
// already formatted message is a no-op.
func (f *Formatter) Format(raw string) string {
	lines := strings.Split(raw, "\n")
	if len(lines) == 0 {
		return raw
	}

	subject := f.formatSubject(strings.TrimSpace(lines[0]))

	if len(lines) < 2 {
		return subject
	}

	// Drop exactly one blank separator line after the subject if present.
	bodyLines := lines[1:]
	if strings.TrimSpace(bodyLines[0]) == "" {
		bodyLines = bodyLines[1:]
	}

	var formatted []string
	for _, line := range bodyLines {
		if strings.TrimSpace(line) == "" {
			formatted = append(formatted, "")
			continue
		}
		formatted = append(formatted, f.wrapLine(line, f.limits.BodyLineWidth)...)
	}

	// Strip trailing blank lines.
	for len(formatted) > 0 && formatted[len(formatted)-1] == "" {
		formatted = formatted[:len(formatted)-1]
	}

	if len(formatted) == 0 {
		return subject
	}

	return subject + "\n\n" + strings.Join(formatted, "\n")
}

func (f *Formatter) formatSubject(subject string) string {
	if subject == "" {
		return subject
	}

	runes := []rune(subject)
	runes[0] = unicode.ToUpper(runes[0])
	subject = string(runes)

	subject = strings.TrimSuffix(subject, ".")

	return TruncateSubject(subject, f.limits.SubjectLineLimit)
}

// TruncateSubject shortens a subject to the byte limit with a trailing
// ellipsis, cutting at rune boundaries so multibyte text stays valid UTF-8.
func TruncateSubject(subject string, limit int) string {
	if len(subject) <= limit {
		return subject
	}
	runes := []rune(subject)
	for len(runes) > 0 && len(string(runes))+3 > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

// wrapLine wraps one logical line to the given width, breaking only at
// whitespace. Bullet lines keep their marker on the first segment and indent
// continuations by two spaces so the list stays aligned.
func (f *Formatter) wrapLine(line string, width int) []string {
	content := strings.TrimSpace(line)

	var bullet string
	for _, marker := range bulletMarkers {
		if strings.HasPrefix(content, marker) {
			bullet = marker
			content = strings.TrimSpace(content[len(marker):])
			break
		}
	}

	words := strings.Fields(content)
	if len(words) == 0 {
		if bullet != "" {
			return []string{strings.TrimRight(bullet, " ")}
		}
		return []string{""}
	}

	indent := ""
	if bullet != "" {
		indent = "  "
	}

	var out []string
	current := bullet + words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) <= width {
			current += " " + word
			continue
		}
		out = append(out, current)
		current = indent + word
	}
	out = append(out, current)

	return out
}
