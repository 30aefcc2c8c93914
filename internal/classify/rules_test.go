package classify

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultRules(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()
	if len(rules) == 0 {
		t.Fatal("DefaultRules() returned no rules")
	}
	seen := make(map[string]bool)
	for _, r := range rules {
		if seen[r.Category] {
			t.Errorf("duplicate category %q", r.Category)
		}
		seen[r.Category] = true
	}
	for _, want := range []string{"Forums", "E-Commerce", "Computers and Technology"} {
		if !seen[want] {
			t.Errorf("missing category %q", want)
		}
	}
}

func TestParseRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		want    int
		wantErr error
	}{
		{
			name: "valid",
			data: "rules:\n  - category: News\n    keywords: [news, breaking]\n    min_score: 0.2\n",
			want: 1,
		},
		{
			name:    "missing category",
			data:    "rules:\n  - keywords: [news]\n",
			wantErr: ErrInvalidRule,
		},
		{
			name:    "missing keywords",
			data:    "rules:\n  - category: News\n",
			wantErr: ErrInvalidRule,
		},
		{
			name: "empty file",
			data: "",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseRules([]byte(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseRules() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRules() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len(rules) = %d, want %d", len(got), tt.want)
			}
		})
	}

	if _, err := ParseRules([]byte("rules: [")); err == nil {
		t.Error("ParseRules() expected error for malformed YAML")
	}
}

func TestLoadRules(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	data := "rules:\n  - category: Custom\n    keywords: [widget]\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}
	if len(rules) != 1 || rules[0].Category != "Custom" || rules[0].MinScore != 0 {
		t.Errorf("LoadRules() = %+v", rules)
	}

	if _, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadRules() expected error for missing file")
	}
}
