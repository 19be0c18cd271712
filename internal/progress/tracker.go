package progress

import (
	"fmt"

	"github.com/iconidentify/buzzteacher/internal/domain"
)

// Tracker is the step-state register of one orchestration run. It has a
// single writer at any instant and is not safe for concurrent use; batch
// workers report counts to their scheduler, never to the tracker.
type Tracker struct {
	plan    string
	steps   []domain.ProgressStep
	index   map[domain.StepID]int
	percent int
}

// NewTracker creates a tracker with every step of plan pending.
func NewTracker(plan Plan) *Tracker {
	t := &Tracker{
		plan:  plan.Name,
		steps: make([]domain.ProgressStep, len(plan.Steps)),
		index: make(map[domain.StepID]int, len(plan.Steps)),
	}
	for i, s := range plan.Steps {
		t.steps[i] = domain.ProgressStep{ID: s.ID, Label: s.Label, Status: domain.StepPending}
		t.index[s.ID] = i
	}
	return t
}

// Plan returns the name of the plan the tracker was built from.
func (t *Tracker) Plan() string {
	return t.plan
}

// Has reports whether id is part of the plan.
func (t *Tracker) Has(id domain.StepID) bool {
	_, ok := t.index[id]
	return ok
}

// Status returns the current status of a step.
func (t *Tracker) Status(id domain.StepID) (domain.StepStatus, bool) {
	i, ok := t.index[id]
	if !ok {
		return "", false
	}
	return t.steps[i].Status, true
}

// Start moves a pending step to in_progress.
func (t *Tracker) Start(id domain.StepID) error {
	return t.transition(id, domain.StepPending, domain.StepInProgress, nil)
}

// Complete moves an in-progress step to completed. An empty detail keeps
// the existing one.
func (t *Tracker) Complete(id domain.StepID, detail string) error {
	return t.transition(id, domain.StepInProgress, domain.StepCompleted, detailPtr(detail))
}

// Fail moves an in-progress step to error with a human-readable detail.
func (t *Tracker) Fail(id domain.StepID, detail string) error {
	return t.transition(id, domain.StepInProgress, domain.StepError, detailPtr(detail))
}

// Skip marks a pending step as error because an earlier step left it
// without input.
func (t *Tracker) Skip(id domain.StepID, detail string) error {
	if err := t.Start(id); err != nil {
		return err
	}
	return t.Fail(id, detail)
}

// SetDetail updates the detail of a step that has not finished.
func (t *Tracker) SetDetail(id domain.StepID, detail string) error {
	i, ok := t.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownStep, id)
	}
	if t.steps[i].Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", domain.ErrStepTransition, id, t.steps[i].Status)
	}
	t.steps[i].Detail = detail
	return nil
}

// Done reports whether every step reached a terminal status.
func (t *Tracker) Done() bool {
	for _, s := range t.steps {
		if !s.Status.Terminal() {
			return false
		}
	}
	return true
}

// Steps returns a copy of the current plan state.
func (t *Tracker) Steps() []domain.ProgressStep {
	out := make([]domain.ProgressStep, len(t.steps))
	copy(out, t.steps)
	return out
}

// Percent returns the highest percent reported so far.
func (t *Tracker) Percent() int {
	return t.percent
}

// Update builds a progress report with a full snapshot of the plan. Percent
// never decreases across calls and is clamped to [0, 100].
func (t *Tracker) Update(stage string, percent int) domain.ProgressUpdate {
	return domain.ProgressUpdate{
		Stage:   stage,
		Percent: domain.Percent(t.advance(percent)),
		Steps:   t.Steps(),
	}
}

// Counted builds a progress report for a batch step.
func (t *Tracker) Counted(stage string, percent, current, total int) domain.ProgressUpdate {
	u := t.Update(stage, percent)
	u.Current = &current
	u.Total = &total
	return u
}

func (t *Tracker) advance(percent int) int {
	if percent > 100 {
		percent = 100
	}
	if percent > t.percent {
		t.percent = percent
	}
	return t.percent
}

func (t *Tracker) transition(id domain.StepID, from, to domain.StepStatus, detail *string) error {
	i, ok := t.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownStep, id)
	}
	step := &t.steps[i]
	if step.Status != from {
		return fmt.Errorf("%w: %s %s -> %s", domain.ErrStepTransition, id, step.Status, to)
	}
	step.Status = to
	if detail != nil {
		step.Detail = *detail
	}
	return nil
}

func detailPtr(detail string) *string {
	if detail == "" {
		return nil
	}
	return &detail
}
