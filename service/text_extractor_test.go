package service

import (
	"testing"

	"github.com/difyz9/notetts/model"
)

const extractorFixture = "Hello world.\nSecond line here\nThe end!"

func TestExtractTextScopes(t *testing.T) {
	tests := []struct {
		scope model.ReadScope
		want  string
	}{
		{model.ReadScopeBefore, "Hello world.\nSecond"},
		{model.ReadScopeAfter, "line here\nThe end"},
		{model.ReadScopeOff, ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.scope), func(t *testing.T) {
			doc := NewDocument(extractorFixture)
			doc.SetCursor(Position{Line: 1, Ch: 7})
			if got := ExtractText(tt.scope, doc); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestExtractTextSelectionWins(t *testing.T) {
	for _, scope := range []model.ReadScope{model.ReadScopeBefore, model.ReadScopeAfter, model.ReadScopeOff} {
		doc := NewDocument(extractorFixture)
		doc.Select(Position{Line: 0, Ch: 6}, Position{Line: 1, Ch: 6})
		if got := ExtractText(scope, doc); got != "world.\nSecond" {
			t.Fatalf("scope %s: expected selection, got %q", scope, got)
		}
	}
}

func TestExtractTextReversedSelection(t *testing.T) {
	doc := NewDocument(extractorFixture)
	doc.Select(Position{Line: 2, Ch: 3}, Position{Line: 2, Ch: 0})
	if got := ExtractText(model.ReadScopeOff, doc); got != "The" {
		t.Fatalf("expected %q, got %q", "The", got)
	}
}

func TestExtractTextNoEditor(t *testing.T) {
	if got := ExtractText(model.ReadScopeBefore, nil); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestExtractTextAfterWithoutWords(t *testing.T) {
	doc := NewDocument("first line\n...")
	doc.SetCursor(Position{Line: 0, Ch: 6})
	if got := ExtractText(model.ReadScopeAfter, doc); got != "line\n..." {
		t.Fatalf("expected fallback to document end, got %q", got)
	}
}

func TestExtractTextMultibyte(t *testing.T) {
	doc := NewDocument("你好世界\n第二行")
	doc.SetCursor(Position{Line: 0, Ch: 2})
	if got := ExtractText(model.ReadScopeBefore, doc); got != "你好" {
		t.Fatalf("expected %q, got %q", "你好", got)
	}
	if got := ExtractText(model.ReadScopeAfter, doc); got != "世界\n第二行" {
		t.Fatalf("expected %q, got %q", "世界\n第二行", got)
	}
}

func TestParsePosition(t *testing.T) {
	doc := NewDocument(extractorFixture)

	pos, err := ParsePosition("1:4", doc)
	if err != nil || pos != (Position{Line: 1, Ch: 4}) {
		t.Fatalf("unexpected position %+v (err=%v)", pos, err)
	}
	pos, err = ParsePosition("2", doc)
	if err != nil || pos != (Position{Line: 2}) {
		t.Fatalf("unexpected position %+v (err=%v)", pos, err)
	}
	pos, err = ParsePosition("end", doc)
	if err != nil || pos != (Position{Line: 2, Ch: 8}) {
		t.Fatalf("unexpected end position %+v (err=%v)", pos, err)
	}
	if _, err := ParsePosition("x:1", doc); err == nil {
		t.Fatal("expected error for invalid position")
	}
}
