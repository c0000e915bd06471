package checkpoint

import (
	"encoding/json"
	"sort"
)

// Ledger is the resumability record for one run: the set of completed step
// identifiers and an opaque payload for each. A step appears here only after
// its execution fully succeeded.
type Ledger struct {
	steps map[string]string
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{steps: make(map[string]string)}
}

// CompleteStep marks the step as done and stores its payload. Completing an
// already-complete step replaces the payload.
func (l *Ledger) CompleteStep(id, payload string) {
	if l.steps == nil {
		l.steps = make(map[string]string)
	}
	l.steps[id] = payload
}

// IsStepComplete reports whether the step finished in a previous (or the
// current) run.
func (l *Ledger) IsStepComplete(id string) bool {
	_, ok := l.steps[id]
	return ok
}

// StepData returns the stored payload for a completed step.
func (l *Ledger) StepData(id string) (string, bool) {
	payload, ok := l.steps[id]
	return payload, ok
}

// CompletedSteps returns the completed step ids in sorted order.
func (l *Ledger) CompletedSteps() []string {
	ids := make([]string, 0, len(l.steps))
	for id := range l.steps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of completed steps.
func (l *Ledger) Len() int { return len(l.steps) }

// ledgerDocument is the on-disk shape. Versioned so a future format change can
// be detected instead of misread.
type ledgerDocument struct {
	Version        int               `json:"version"`
	CompletedSteps map[string]string `json:"completed_steps"`
}

const ledgerVersion = 1

// MarshalJSON implements json.Marshaler.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	doc := ledgerDocument{Version: ledgerVersion, CompletedSteps: l.steps}
	if doc.CompletedSteps == nil {
		doc.CompletedSteps = map[string]string{}
	}
	return json.Marshal(doc)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	var doc ledgerDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	l.steps = doc.CompletedSteps
	if l.steps == nil {
		l.steps = make(map[string]string)
	}
	return nil
}
