package transcode

import (
	"strings"
	"testing"
)

func TestEncodeErrorMessage(t *testing.T) {
	t.Parallel()

	err := &EncodeError{ExitCode: 1, Stderr: "Invalid data found when processing input"}
	msg := err.Error()

	if !strings.Contains(msg, "code 1") {
		t.Errorf("Error() = %q, want exit code included", msg)
	}
	if !strings.Contains(msg, "Invalid data found") {
		t.Errorf("Error() = %q, want stderr diagnostic included", msg)
	}
}

func TestStderrTail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		lines int
		want  int
	}{
		{"short output kept whole", 5, 5},
		{"exactly at limit", stderrTailLines, stderrTailLines},
		{"long output truncated", 100, stderrTailLines},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var b strings.Builder
			for i := 0; i < tt.lines; i++ {
				b.WriteString("line\n")
			}

			got := stderrTail(b.String())
			n := len(strings.Split(got, "\n"))
			if n != tt.want {
				t.Errorf("stderrTail kept %d lines, want %d", n, tt.want)
			}
		})
	}
}

func TestStderrTailEmpty(t *testing.T) {
	t.Parallel()

	if got := stderrTail(""); got != "" {
		t.Errorf("stderrTail(\"\") = %q, want empty", got)
	}
}
