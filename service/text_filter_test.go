package service

import "testing"

func TestFilterText(t *testing.T) {
	tests := []struct {
		name string
		rule string
		text string
		want string
	}{
		{"whitespace runs", `/[ \t]+/`, "a   b\tc", "a b c"},
		{"flags ignored", `/\[\d+\]/g`, "see[1] and[23]", "see  and "},
		{"case insensitive", `/todo/`, "TODO: Todo done", " :   done"},
		{"empty rule", "", "keep  me", "keep  me"},
		{"empty text", `/x/`, "", ""},
		{"bare pattern", `foo`, "a foo b", "a   b"},
		{"empty pattern", `//g`, "a b", "a b"},
		{"lookahead", `/\d+(?=%)/g`, "up 40% from 12", "up  % from 12"},
		{"lookbehind", `/(?<!\w)x/g`, "x box xy", "  box  y"},
		{"backreference", `/(a)\1/g`, "baab aab", "b b  b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FilterText(tt.rule, tt.text)
			if err != nil {
				t.Fatalf("FilterText returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFilterTextInvalidRule(t *testing.T) {
	if _, err := FilterText(`/[unclosed/`, "text"); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestValidateFilterRule(t *testing.T) {
	for _, rule := range []string{"", `/\d+(?=%)/g`, `/(\w)\1/`} {
		if err := ValidateFilterRule(rule); err != nil {
			t.Fatalf("ValidateFilterRule(%q) returned error: %v", rule, err)
		}
	}
	if err := ValidateFilterRule(`/(?<=a/`); err == nil {
		t.Fatal("expected error for unterminated group")
	}
}
