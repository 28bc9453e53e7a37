package analyze

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/maxbolgarin/gitsquash/internal/model"
	"github.com/stretchr/testify/assert"
)

var testLimits = model.MessageLimits{
	SubjectLineLimit:  50,
	BodyLineWidth:     40,
	TotalMessageLimit: 500,
}

func TestFormatSubjectRules(t *testing.T) {
	f := NewFormatter(testLimits)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"capitalize", "add cache layer", "Add cache layer"},
		{"strip period", "Add cache layer.", "Add cache layer"},
		{"keep inner case", "fix HTTP retry in API client", "Fix HTTP retry in API client"},
		{"subject only", "Add cache layer\n", "Add cache layer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Format(tt.in))
		})
	}
}

func TestFormatSubjectTruncation(t *testing.T) {
	f := NewFormatter(testLimits)

	long := strings.Repeat("x", 80)
	got := f.Format(long)
	assert.Len(t, got, testLimits.SubjectLineLimit)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestTruncateSubjectKeepsRunesIntact(t *testing.T) {
	// Three bytes per rune: a byte-indexed cut would land mid-rune.
	long := strings.Repeat("ファイル", 20)
	got := TruncateSubject(long, testLimits.SubjectLineLimit)

	assert.LessOrEqual(t, len(got), testLimits.SubjectLineLimit)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.True(t, utf8.ValidString(got))

	short := "Добавить кэш"
	assert.Equal(t, short, TruncateSubject(short, testLimits.SubjectLineLimit))
}

func TestFormatBodyWrapping(t *testing.T) {
	f := NewFormatter(testLimits)

	raw := "Add cache layer\n\n" +
		"- implement a persistent summary cache with atomic writes and locks\n" +
		"plain body text that is long enough to need wrapping onto another line"

	got := f.Format(raw)
	lines := strings.Split(got, "\n")

	assert.Equal(t, "Add cache layer", lines[0])
	assert.Equal(t, "", lines[1])

	for _, line := range lines[2:] {
		assert.LessOrEqual(t, len(line), testLimits.BodyLineWidth, "line %q", line)
	}

	// Bullet marker stays on the first segment, continuations are indented.
	assert.True(t, strings.HasPrefix(lines[2], "- "))
	assert.True(t, strings.HasPrefix(lines[3], "  "))
}

func TestFormatStripsTrailingBlankLines(t *testing.T) {
	f := NewFormatter(testLimits)

	got := f.Format("Add feature\n\n- change one\n\n\n")
	assert.Equal(t, "Add feature\n\n- change one", got)
}

func TestFormatEmptyBodyReturnsSubject(t *testing.T) {
	f := NewFormatter(testLimits)

	assert.Equal(t, "Add feature", f.Format("add feature\n\n\n"))
}

func TestFormatIdempotent(t *testing.T) {
	f := NewFormatter(testLimits)

	messages := []string{
		"Add cache layer",
		"Add cache layer\n\n- short bullet\n- another bullet",
		"Fix bug\n\nplain short body line",
	}

	for _, m := range messages {
		once := f.Format(m)
		assert.Equal(t, once, f.Format(once))
	}
}
