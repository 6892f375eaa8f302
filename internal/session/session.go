// Package session holds the state machine of one scan run.
//
// A run walks Idle -> Loading -> Detecting -> ExtractingOCR -> ExtractingFields
// and ends in Succeeded or Failed. The four progress steps are a local
// projection of "call issued" and "call returned"; the extraction service does
// not report intermediate progress.
//
// A Session is not safe for concurrent use. The orchestrator owning it
// serializes access.
package session

import (
	"errors"
	"time"

	"github.com/akolanti/DocScanAPI/internal/domain/documentModel"
)

type State string

const (
	Idle             State = "idle"
	Loading          State = "loading"
	Detecting        State = "detecting"
	ExtractingOCR    State = "extracting_ocr"
	ExtractingFields State = "extracting_fields"
	Succeeded        State = "succeeded"
	Failed           State = "failed"
)

type Kind string

const (
	KindNone   Kind = ""
	KindUpload Kind = "upload"
	KindRescan Kind = "rescan"
	KindEdit   Kind = "edit"
)

var (
	ErrInFlight    = errors.New("session: a run is already in flight")
	ErrNotInFlight = errors.New("session: no run in flight")
)

type Session struct {
	state      State
	kind       Kind
	steps      [stepCount]Step
	generation uint64
	result     *documentModel.ExtractionResult
	failure    error
	startedAt  time.Time
	finishedAt time.Time
	now        func() time.Time
}

type View struct {
	State      State                           `json:"state"`
	Kind       Kind                            `json:"kind,omitempty"`
	Steps      []Step                          `json:"steps"`
	Generation uint64                          `json:"generation"`
	Result     *documentModel.ExtractionResult `json:"result,omitempty"`
	Error      string                          `json:"error,omitempty"`
	StartedAt  time.Time                       `json:"started_at,omitempty"`
	FinishedAt time.Time                       `json:"finished_at,omitempty"`
}

func New() *Session {
	s := &Session{now: time.Now}
	s.reset()
	return s
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Kind() Kind {
	return s.kind
}

func (s *Session) Generation() uint64 {
	return s.generation
}

// InFlight is true between Start and Succeed/Fail.
func (s *Session) InFlight() bool {
	switch s.state {
	case Loading, Detecting, ExtractingOCR, ExtractingFields:
		return true
	}
	return false
}

func (s *Session) Result() *documentModel.ExtractionResult {
	return s.result
}

func (s *Session) Err() error {
	return s.failure
}

// Start begins a run and returns its generation. Step 1 is completed and step 2
// is current before Start returns.
func (s *Session) Start(kind Kind) (uint64, error) {
	if s.InFlight() {
		return 0, ErrInFlight
	}
	s.reset()
	s.kind = kind
	s.startedAt = s.now()

	s.state = Loading
	s.steps[stepLoaded] = loadedStep(kind, Completed)
	s.steps[stepDetection] = detectionStep(Current)
	s.state = Detecting
	return s.generation, nil
}

// Advance completes the current step and makes the next one current.
func (s *Session) Advance() error {
	switch s.state {
	case Detecting:
		s.steps[stepDetection] = detectionStep(Completed)
		s.steps[stepOCR] = ocrStep(Current)
		s.state = ExtractingOCR
	case ExtractingOCR:
		s.steps[stepOCR] = ocrStep(Completed)
		s.steps[stepExtraction] = extractionStep(Current)
		s.state = ExtractingFields
	case ExtractingFields:
	default:
		return ErrNotInFlight
	}
	return nil
}

// Succeed completes every remaining step and holds result.
func (s *Session) Succeed(result documentModel.ExtractionResult) error {
	if !s.InFlight() {
		return ErrNotInFlight
	}
	s.steps[stepLoaded] = loadedStep(s.kind, Completed)
	s.steps[stepDetection] = detectionStep(Completed)
	s.steps[stepOCR] = ocrStep(Completed)
	s.steps[stepExtraction] = extractionStep(Completed)
	s.result = &result
	s.failure = nil
	s.state = Succeeded
	s.finishedAt = s.now()
	return nil
}

// Fail reverts the current step to pending with description "Failed" and drops
// any result.
func (s *Session) Fail(err error) error {
	if !s.InFlight() {
		return ErrNotInFlight
	}
	for i := range s.steps {
		if s.steps[i].Status == Current {
			s.steps[i].Status = Pending
			s.steps[i].Description = FailedDescription
		}
	}
	s.result = nil
	s.failure = err
	s.state = Failed
	s.finishedAt = s.now()
	return nil
}

// Reset returns to Idle from any state. Any run still out invalidates itself
// through the generation bump.
func (s *Session) Reset() {
	s.reset()
}

// Hydrate opens an already stored document for review without an extraction call.
func (s *Session) Hydrate(result documentModel.ExtractionResult) uint64 {
	s.reset()
	s.kind = KindEdit
	s.startedAt = s.now()
	s.steps[stepLoaded] = loadedStep(KindEdit, Completed)
	s.steps[stepDetection] = detectionStep(Completed)
	s.steps[stepOCR] = ocrStep(Completed)
	s.steps[stepExtraction] = extractionStep(Completed)
	s.result = &result
	s.state = Succeeded
	s.finishedAt = s.startedAt
	return s.generation
}

func (s *Session) Steps() []Step {
	out := make([]Step, len(s.steps))
	copy(out, s.steps[:])
	return out
}

func (s *Session) View() View {
	v := View{
		State:      s.state,
		Kind:       s.kind,
		Steps:      s.Steps(),
		Generation: s.generation,
		StartedAt:  s.startedAt,
		FinishedAt: s.finishedAt,
	}
	if s.result != nil {
		r := *s.result
		v.Result = &r
	}
	if s.failure != nil {
		v.Error = s.failure.Error()
	}
	return v
}

func (s *Session) reset() {
	s.generation++
	s.state = Idle
	s.kind = KindNone
	s.steps = idleSteps()
	s.result = nil
	s.failure = nil
	s.startedAt = time.Time{}
	s.finishedAt = time.Time{}
}
