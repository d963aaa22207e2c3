package asciiimport

import (
	"strings"
	"testing"
)

const chorusBlock = `Title: Test Song
Tuning: E2 A2 D3 G3 B3 E4

[Chorus]
e|--0---3---|
B|--1---0---|
G|--0---0---|
D|--2---0---|
A|--2---2---|
E|--0---3---|
`

func TestImportScenario6ChorusSectionWithDefaultRhythm(t *testing.T) {
	res := Import(chorusBlock, "")

	if !strings.Contains(res.Source, "# [Chorus]") {
		t.Fatalf("expected a %q comment, got:\n%s", "# [Chorus]", res.Source)
	}
	if !strings.Contains(res.Source, `rhythm="unknown"`) {
		t.Fatalf("expected rhythm=\"unknown\" annotations under the default strategy, got:\n%s", res.Source)
	}
	if !strings.Contains(res.Source, "m1:") {
		t.Fatalf("expected at least one measure line, got:\n%s", res.Source)
	}
}

func TestImportRecognizesMetadata(t *testing.T) {
	res := Import(chorusBlock, "")
	if !strings.Contains(res.Source, `title = "Test Song"`) {
		t.Fatalf("expected title to be picked up from metadata, got:\n%s", res.Source)
	}
	if !strings.Contains(res.Source, `tuning = `) {
		t.Fatalf("expected tuning to be picked up from metadata, got:\n%s", res.Source)
	}
}

func TestImportWarnsOnNonSixRowBlock(t *testing.T) {
	block := `e|--0--|
B|--1--|
G|--0--|
`
	res := Import(block, "")
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "expected 6") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a row-count warning, got: %v", res.Warnings)
	}
}

func TestImportFixedEighthStrategyOmitsRhythmAnnotation(t *testing.T) {
	res := Import(chorusBlock, RhythmFixedEighth)
	if strings.Contains(res.Source, "rhythm=") {
		t.Fatalf("fixed-eighth strategy should not annotate rhythm, got:\n%s", res.Source)
	}
}

func TestImportColumnGridStrategyWarnsApproximate(t *testing.T) {
	res := Import(chorusBlock, RhythmColumnGrid)
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "approximate") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an approximate rhythm warning for column-grid, got: %v", res.Warnings)
	}
}

func TestImportGhostNoteAndBendAnnotated(t *testing.T) {
	block := `e|--(3)--5b7--|
B|-----------|
G|-----------|
D|-----------|
A|-----------|
E|-----------|
`
	res := Import(block, "")
	if !strings.Contains(res.Source, "ghost=true") {
		t.Fatalf("expected a ghost=true annotation, got:\n%s", res.Source)
	}
	if !strings.Contains(res.Source, "bend_to=7") {
		t.Fatalf("expected a bend_to=7 annotation, got:\n%s", res.Source)
	}
}

func TestImportNeverPanicsOnGarbage(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Import panicked on garbage input: %v", r)
		}
	}()
	Import("not a tab at all\n||||\n[[[", "")
}
