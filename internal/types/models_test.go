package types

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestConversionJobTerminalStates(t *testing.T) {
	for _, terminal := range []ConversionState{ConversionReady, ConversionFailed, ConversionTimedOut} {
		t.Run(string(terminal), func(t *testing.T) {
			job := NewConversionJob("AAAAAAAAAAA")
			if err := job.Transition(ConversionProcessing); err != nil {
				t.Fatalf("pending -> processing: %v", err)
			}
			if err := job.Transition(terminal); err != nil {
				t.Fatalf("processing -> %s: %v", terminal, err)
			}
			if err := job.Transition(ConversionProcessing); err == nil {
				t.Fatalf("%s -> processing should be rejected", terminal)
			}
			if job.State != terminal {
				t.Fatalf("state = %s, want %s", job.State, terminal)
			}
		})
	}
}

func TestItemFailureJSONCarriesError(t *testing.T) {
	f := ItemFailure{
		Index: 1,
		Item:  SelectedItem{Reference: "https://x/watch?v=BBBBBBBBBBB", Title: "T2"},
		Stage: StageConvert,
		Err:   errors.New("provider said no"),
	}
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"error":"provider said no"`) {
		t.Errorf("json = %s", data)
	}
	if !errors.Is(f, f.Err) {
		t.Error("ItemFailure should unwrap to its cause")
	}
}
