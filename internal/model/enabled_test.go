package model

import "testing"

func TestEnabledModes(t *testing.T) {
	if !AllOn().On("anything") {
		t.Fatal("AllOn should enable every key")
	}
	if AllOff().On("anything") {
		t.Fatal("AllOff should disable every key")
	}

	e := PerKey(map[string]bool{"intake": true, "winback": false})
	if !e.On("intake") {
		t.Fatal("intake should be on")
	}
	if e.On("winback") {
		t.Fatal("winback should be off")
	}
	if e.On("unknown") {
		t.Fatal("unknown keys default to off in per-key mode")
	}
}

func TestZeroValueIsOff(t *testing.T) {
	var e Enabled
	if e.On("anything") {
		t.Fatal("zero value should disable every key")
	}
}

func TestParseEnabled(t *testing.T) {
	e, err := ParseEnabled([]byte(`{"mode":"all"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !e.On("x") {
		t.Fatal("parsed all mode should be on")
	}

	e, err = ParseEnabled([]byte(`{"mode":"per_key","keys":{"intake":true}}`))
	if err != nil {
		t.Fatal(err)
	}
	if !e.On("intake") || e.On("other") {
		t.Fatal("per-key parse mismatch")
	}

	if _, err := ParseEnabled([]byte(`{"mode":"sometimes"}`)); err == nil {
		t.Fatal("unknown mode should fail")
	}
	if _, err := ParseEnabled([]byte(`not json`)); err == nil {
		t.Fatal("malformed JSON should fail")
	}
}

func TestSettingsSequencesFallsBackToAllOn(t *testing.T) {
	s := &DripSettings{}
	if !s.Sequences().On("intake") {
		t.Fatal("missing column should mean all on")
	}

	s.SequencesRaw = []byte(`{"mode":"bogus"}`)
	if !s.Sequences().On("intake") {
		t.Fatal("malformed column should mean all on")
	}

	s.SequencesRaw = []byte(`{"mode":"none"}`)
	if s.Sequences().On("intake") {
		t.Fatal("none mode should disable")
	}
}
