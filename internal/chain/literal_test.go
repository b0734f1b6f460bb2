package chain

import (
	"reflect"
	"testing"
)

func TestParseStructNested(t *testing.T) {
	text := `{
  project_owner: aleo1owner,
  collected_amount: 10u64,
  project_details: {
    title: 25185field,
    img: 0field
  }
}`
	s, err := ParseStruct(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Literal("project_owner") != "aleo1owner" {
		t.Fatalf("owner mismatch: %q", s.Literal("project_owner"))
	}
	if s.Uint("collected_amount", 64) != 10 {
		t.Fatalf("amount mismatch: %d", s.Uint("collected_amount", 64))
	}
	details := s.Child("project_details")
	if details.Literal("title") != "25185field" || details.Literal("img") != "0field" {
		t.Fatalf("details mismatch: %+v", details)
	}
}

func TestParseStructQuotedDelimiters(t *testing.T) {
	s, err := ParseStruct(`{ a: "x, {y}: z", b: 2u8 }`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Literal("a") != `"x, {y}: z"` {
		t.Fatalf("quoted literal mismatch: %q", s.Literal("a"))
	}
	if s.Uint("b", 8) != 2 {
		t.Fatalf("b mismatch")
	}
}

func TestParseStructPartial(t *testing.T) {
	s, err := ParseStruct(`{ round_id: 3u32, approved_projects: 2u16, submitted_`)
	if err == nil {
		t.Fatalf("expected syntax error")
	}
	if s.Uint("round_id", 32) != 3 || s.Uint("approved_projects", 16) != 2 {
		t.Fatalf("expected fields before the error: %+v", s)
	}
}

func TestStructDefaults(t *testing.T) {
	s := Struct{
		"n":    Value{Literal: "notanumber"},
		"big":  Value{Literal: "70000u16"},
		"flag": Value{Literal: "yes"},
		"pub":  Value{Literal: "true.public"},
	}
	if s.Uint("n", 32) != 0 || s.Uint("missing", 32) != 0 || s.Uint("big", 16) != 0 {
		t.Fatalf("expected zero defaults")
	}
	if s.Bool("flag") || s.Bool("missing") {
		t.Fatalf("expected false defaults")
	}
	if !s.Bool("pub") {
		t.Fatalf("expected visibility suffix to be ignored")
	}
	if !reflect.DeepEqual(s.Child("missing"), Struct{}) {
		t.Fatalf("expected empty child")
	}
}

func TestUnwrapBody(t *testing.T) {
	got := unwrapBody(`"{\n  round_id: 1u32\n}"`)
	if got != "{\n  round_id: 1u32\n}" {
		t.Fatalf("unwrap mismatch: %q", got)
	}
	if unwrapBody("  null ") != "null" {
		t.Fatalf("expected null passthrough")
	}
}
