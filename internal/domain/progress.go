package domain

// StepID names one phase of a step plan.
type StepID string

const (
	StepInsight   StepID = "insight"
	StepDownload  StepID = "download"
	StepAnalyze   StepID = "analyze"
	StepAdvice    StepID = "advice"
	StepRecognize StepID = "recognize"
	StepProfile   StepID = "profile"
	StepVideos    StepID = "videos"
	StepReport    StepID = "report"
)

// StepStatus is the lifecycle state of a step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepError      StepStatus = "error"
)

// Terminal reports whether no further transition is allowed.
func (s StepStatus) Terminal() bool {
	return s == StepCompleted || s == StepError
}

// ProgressStep is one entry of the checklist shown to the client.
type ProgressStep struct {
	ID     StepID     `json:"id"`
	Label  string     `json:"label"`
	Status StepStatus `json:"status"`
	Detail string     `json:"detail,omitempty"`
}

// ProgressUpdate is one progress report. Percent, Current and Total are
// optional; Steps is the full plan snapshot when a plan is active.
type ProgressUpdate struct {
	Stage   string
	Percent *int
	Current *int
	Total   *int
	Steps   []ProgressStep
}

// Percent returns a pointer to p.
func Percent(p int) *int {
	return &p
}
