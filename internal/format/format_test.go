package format

import (
	"strings"
	"testing"
)

func TestFormatExpandsDurationCarry(t *testing.T) {
	src := "format = \"opentab\"\nversion = \"0.1\"\n---\n@track gtr1\nm1: | q (6:0) (6:1) (6:2) (6:3) |\n"
	out, err := Format(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "format = \"opentab\"\nversion = \"0.1\"\n---\n@track gtr1\nm1: | q (6:0) q (6:1) q (6:2) q (6:3) |\n"
	if out != want {
		t.Fatalf("got:\n%q\nwant:\n%q", out, want)
	}
}

func TestFormatIsIdempotent(t *testing.T) {
	src := "format = \"opentab\"\nversion = \"0.1\"\n\n\n---\n@track gtr1\nm1: |   q   (6:0)    (6:1)|   \n"
	once, err := Format(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	twice, err := Format(once)
	if err != nil {
		t.Fatalf("unexpected error on second pass: %v", err)
	}
	if once != twice {
		t.Fatalf("format is not idempotent:\nonce:\n%q\ntwice:\n%q", once, twice)
	}
}

func TestFormatTrimsHeaderBlankLines(t *testing.T) {
	src := "\n\nformat = \"opentab\"\nversion = \"0.1\"   \n\n\n---\n@track gtr1\nm1: | q r |\n"
	out, err := Format(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "format = \"opentab\"\nversion = \"0.1\"\n---\n@track gtr1\nm1: | q r |\n"
	if out != want {
		t.Fatalf("got:\n%q\nwant:\n%q", out, want)
	}
}

func TestFormatPreservesUnknownHeaderKeys(t *testing.T) {
	src := "format = \"opentab\"\nversion = \"0.1\"\nimported_from = \"ascii\"\nimport_warnings = 3\n---\n@track gtr1\nm1: | q r |\n"
	out, err := Format(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "imported_from = \"ascii\"") || !strings.Contains(out, "import_warnings = 3") {
		t.Fatalf("expected unknown keys preserved verbatim, got:\n%q", out)
	}
}

func TestFormatPreservesTrailingComment(t *testing.T) {
	src := "format = \"opentab\"\nversion = \"0.1\"\n---\n@track gtr1\nm1: | q r | # pickup\n"
	out, err := Format(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "format = \"opentab\"\nversion = \"0.1\"\n---\n@track gtr1\nm1: | q r | # pickup\n"
	if out != want {
		t.Fatalf("got:\n%q\nwant:\n%q", out, want)
	}
}

func TestFormatReportsUnbalancedBrackets(t *testing.T) {
	src := "format = \"opentab\"\nversion = \"0.1\"\n---\n@track gtr1\nm1: | q (6:3 ] |\n"
	if _, err := Format(src); err == nil {
		t.Fatal("expected an error for unbalanced brackets")
	}
}

func TestFormatRequiresDelimiter(t *testing.T) {
	src := "format = \"opentab\"\nversion = \"0.1\"\n"
	if _, err := Format(src); err == nil {
		t.Fatal("expected an error for a missing delimiter")
	}
}
