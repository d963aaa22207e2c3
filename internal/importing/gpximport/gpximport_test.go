package gpximport

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

const sampleGPIF = `<?xml version="1.0" encoding="UTF-8"?>
<GPIF>
  <Score>
    <Title>Test Riff</Title>
    <Artist>Nobody</Artist>
    <MasterTrack>
      <Tempo>140</Tempo>
      <MasterBars>
        <MasterBar><Time>4/4</Time></MasterBar>
      </MasterBars>
    </MasterTrack>
  </Score>
  <Tracks>
    <Track id="t0">
      <Name>Guitar</Name>
      <Staves>
        <Staff>
          <Properties>
            <Property name="Tuning"><Pitches>40 45 50 55 59 64</Pitches></Property>
            <Property name="CapoFret"><Fret>2</Fret></Property>
          </Properties>
        </Staff>
      </Staves>
      <Bars>b0</Bars>
    </Track>
  </Tracks>
  <Bars>
    <Bar id="b0"><Voices>v0 -1 -1 -1</Voices></Bar>
  </Bars>
  <Voices>
    <Voice id="v0"><Beats>be0 be1</Beats></Voice>
  </Voices>
  <Beats>
    <Beat id="be0">
      <Notes>n0</Notes>
      <Duration><Value>4</Value></Duration>
    </Beat>
    <Beat id="be1">
      <Notes>n1 n2</Notes>
      <Duration><Value>8</Value><Dotted>true</Dotted></Duration>
    </Beat>
  </Beats>
  <Notes>
    <Note id="n0">
      <Properties>
        <Property name="String"><String>6</String></Property>
        <Property name="Fret"><Fret>3</Fret></Property>
      </Properties>
    </Note>
    <Note id="n1">
      <Properties>
        <Property name="String"><String>5</String></Property>
        <Property name="Fret"><Fret>5</Fret></Property>
      </Properties>
    </Note>
    <Note id="n2">
      <Properties>
        <Property name="String"><String>4</String></Property>
        <Property name="Fret"><Fret>5</Fret></Property>
        <Property name="Bend"><Enable/></Property>
      </Properties>
    </Note>
  </Notes>
</GPIF>
`

func buildGPXArchive(t *testing.T, gpif string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("Content/score.gpif")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte(gpif)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	return buf.Bytes()
}

func TestImportEmitsHeaderFromMasterTrack(t *testing.T) {
	res, err := Import(buildGPXArchive(t, sampleGPIF))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Source, `title = "Test Riff"`) {
		t.Fatalf("expected title, got:\n%s", res.Source)
	}
	if !strings.Contains(res.Source, `tempo_bpm = 140`) {
		t.Fatalf("expected tempo_bpm = 140, got:\n%s", res.Source)
	}
	if !strings.Contains(res.Source, `time_signature = "4/4"`) {
		t.Fatalf("expected time_signature, got:\n%s", res.Source)
	}
	if !strings.Contains(res.Source, `imported_from = "gpx"`) {
		t.Fatalf("expected imported_from = \"gpx\", got:\n%s", res.Source)
	}
}

func TestImportEmitsTuningAndCapo(t *testing.T) {
	res, err := Import(buildGPXArchive(t, sampleGPIF))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Source, `tuning = `) {
		t.Fatalf("expected tuning array, got:\n%s", res.Source)
	}
	if !strings.Contains(res.Source, "capo = 2") {
		t.Fatalf("expected capo = 2, got:\n%s", res.Source)
	}
}

func TestImportRendersNotesAndChord(t *testing.T) {
	res, err := Import(buildGPXArchive(t, sampleGPIF))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Source, "(6:3)") {
		t.Fatalf("expected note (6:3), got:\n%s", res.Source)
	}
	if !strings.Contains(res.Source, "(5:5)") || !strings.Contains(res.Source, "(4:5)") {
		t.Fatalf("expected chord notes (5:5) and (4:5), got:\n%s", res.Source)
	}
}

func TestImportWarnsOnUnsupportedEffect(t *testing.T) {
	res, err := Import(buildGPXArchive(t, sampleGPIF))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "Bend") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a Bend-effect warning, got: %v", res.Warnings)
	}
}

func TestImportErrorsWithoutGpifEntry(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("readme.txt")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	w.Write([]byte("not a score"))
	zw.Close()

	_, err = Import(buf.Bytes())
	if err == nil {
		t.Fatalf("expected an error when no .gpif entry is present")
	}
}
