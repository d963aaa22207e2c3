package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCleanDocumentHasNoDiagnostics(t *testing.T) {
	src := "format = \"opentab\"\nversion = \"0.1\"\n---\n@track gtr1\nm1: | q (6:0) |\n"
	diags := Validate(src)
	assert.Empty(t, diags)
}

func TestValidateMissingDelimiter(t *testing.T) {
	src := "format = \"opentab\"\nversion = \"0.1\"\n"
	diags := Validate(src)
	require.NotEmpty(t, diags)
	assert.Contains(t, diags[0].Message, "---")
}

func TestValidateMissingFormatAndVersion(t *testing.T) {
	src := "title = \"x\"\n---\n@track gtr1\nm1: | q r |\n"
	diags := Validate(src)
	var messages []string
	for _, d := range diags {
		messages = append(messages, d.Message)
	}
	assert.Contains(t, messages, "missing \"format\" key in header")
	assert.Contains(t, messages, "missing \"version\" key in header")
}

func TestValidateMeasureBeforeDirective(t *testing.T) {
	src := "format = \"opentab\"\nversion = \"0.1\"\n---\nm1: | q r |\n"
	diags := Validate(src)
	require.NotEmpty(t, diags)
	assert.Equal(t, "Measure defined before selecting track/voice", diags[0].Message)
	assert.Equal(t, 4, diags[0].Line)
}

func TestValidateUnbalancedBrackets(t *testing.T) {
	src := "format = \"opentab\"\nversion = \"0.1\"\n---\n@track gtr1\nm1: | q (6:3 ] |\n"
	diags := Validate(src)
	require.NotEmpty(t, diags)
	assert.Equal(t, "Unbalanced brackets", diags[0].Message)
	assert.Equal(t, SeverityError, diags[0].Severity)
}

func TestValidateMalformedNoteToken(t *testing.T) {
	src := "format = \"opentab\"\nversion = \"0.1\"\n---\n@track gtr1\nm1: | q (six:0) |\n"
	diags := Validate(src)
	require.NotEmpty(t, diags)
	assert.Contains(t, diags[0].Message, "malformed note token")
}

func TestValidateMalformedMeasureLine(t *testing.T) {
	src := "format = \"opentab\"\nversion = \"0.1\"\n---\n@track gtr1\nm1 q (6:0) |\n"
	diags := Validate(src)
	require.NotEmpty(t, diags)
	assert.Contains(t, diags[0].Message, "malformed measure line")
}

func TestValidateNeverPanicsOnGarbage(t *testing.T) {
	assert.NotPanics(t, func() {
		Validate("")
		Validate("\x00\x01 not even close to opentab")
		Validate("---\n---\n")
	})
}
