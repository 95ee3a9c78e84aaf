package slugs

import "testing"

func TestComponent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"kb", "kb"},
		{"My Knowledge Base", "my-knowledge-base"},
		{"UPPER CASE", "upper-case"},
		{"notes.md", "notes"},
		{"kb:1a2b3c", "kb-1a2b3c"},
		{"Special: Characters!", "special-characters"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Component(tt.in); got != tt.want {
				t.Fatalf("Component(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompact(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"kb", "kb"},
		{"Team Notes", "teamnotes"},
		{"ops:", "ops"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Compact(tt.in); got != tt.want {
				t.Fatalf("Compact(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
