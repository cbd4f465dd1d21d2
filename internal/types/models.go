package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// SelectedItem is one video the user marked for transcription.
type SelectedItem struct {
	Reference string `json:"url" yaml:"url"`
	Title     string `json:"title" yaml:"title"`
}

// --------------------------------------------
// Conversion job
// --------------------------------------------

type ConversionState string

const (
	ConversionPending    ConversionState = "pending"
	ConversionProcessing ConversionState = "processing"
	ConversionReady      ConversionState = "ready"
	ConversionFailed     ConversionState = "failed"
	ConversionTimedOut   ConversionState = "timed_out"
)

// Terminal reports whether no further transition is allowed.
func (s ConversionState) Terminal() bool {
	switch s {
	case ConversionReady, ConversionFailed, ConversionTimedOut:
		return true
	default:
		return false
	}
}

type ConversionJob struct {
	ItemID        string          `json:"item_id"`
	AttemptsMade  int             `json:"attempts_made"`
	State         ConversionState `json:"state"`
	ResultURL     string          `json:"result_url,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
}

func NewConversionJob(itemID string) *ConversionJob {
	return &ConversionJob{ItemID: itemID, State: ConversionPending}
}

// Transition moves the job to next. A terminal job never changes again.
func (j *ConversionJob) Transition(next ConversionState) error {
	if j.State.Terminal() {
		return fmt.Errorf("conversion job %s: already %s, cannot move to %s", j.ItemID, j.State, next)
	}
	j.State = next
	return nil
}

// --------------------------------------------
// Transcripts
// --------------------------------------------

type TranscriptRecord struct {
	Title     string `json:"title"`
	Reference string `json:"url"`
	Text      string `json:"text"`
}

// Stage names a step of the per-item chain.
type Stage string

const (
	StageExtract    Stage = "extract"
	StageConvert    Stage = "convert"
	StageFetch      Stage = "fetch"
	StageTranscode  Stage = "transcode"
	StageTranscribe Stage = "transcribe"
)

// ItemFailure records why one item was skipped.
type ItemFailure struct {
	Index int          `json:"index"`
	Item  SelectedItem `json:"item"`
	Stage Stage        `json:"stage"`
	Err   error        `json:"-"`
}

func (f ItemFailure) Error() string {
	return fmt.Sprintf("item %d (%s) failed at %s: %v", f.Index, f.Item.Reference, f.Stage, f.Err)
}

func (f ItemFailure) Unwrap() error { return f.Err }

// MarshalJSON keeps the error text in API responses.
func (f ItemFailure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		Index int          `json:"index"`
		Item  SelectedItem `json:"item"`
		Stage Stage        `json:"stage"`
		Error string       `json:"error"`
	}{f.Index, f.Item, f.Stage, msg})
}

// BatchReport is the outcome of one batch run.
type BatchReport struct {
	RunID      string             `json:"run_id"`
	Total      int                `json:"total"`
	Records    []TranscriptRecord `json:"records"`
	Failures   []ItemFailure      `json:"failures"`
	Document   string             `json:"document"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}

func (r BatchReport) Succeeded() int { return len(r.Records) }

func (r BatchReport) Failed() int { return len(r.Failures) }

// --------------------------------------------
// Knowledge base
// --------------------------------------------

// KnowledgeBaseResult is the structured payload returned by synthesis.
type KnowledgeBaseResult struct {
	Payload json.RawMessage `json:"payload"`
}
