package domain

import "errors"

// Domain errors.
var (
	// ErrInvalidRequest is returned when a chat request cannot be accepted.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoMessages is returned when a chat request carries no messages.
	ErrNoMessages = errors.New("no messages provided")

	// ErrLastMessageNotUser is returned when the newest message is not from the user.
	ErrLastMessageNotUser = errors.New("last message must be from the user")

	// ErrInsufficientAnalyses is returned when a discussion has fewer than two participants.
	ErrInsufficientAnalyses = errors.New("discussion needs at least two persona analyses")

	// ErrConversationNotFound is returned when a conversation cannot be found.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrEmptyContent is returned when a message has no content.
	ErrEmptyContent = errors.New("message content cannot be empty")

	// ErrUnavailable is returned by collaborators when data cannot be obtained.
	ErrUnavailable = errors.New("data unavailable")

	// ErrAnalysisFailed is returned when the content analyzer produced nothing.
	ErrAnalysisFailed = errors.New("content analysis failed")

	// ErrDebateParse is returned when a discussion response has no usable JSON array.
	ErrDebateParse = errors.New("discussion response could not be parsed")

	// ErrStepTransition is returned for a step transition that would regress or repeat.
	ErrStepTransition = errors.New("invalid step transition")

	// ErrUnknownStep is returned when a step id is not part of the plan.
	ErrUnknownStep = errors.New("unknown step")

	// ErrStreamClosed is returned when writing to a finished or broken stream.
	ErrStreamClosed = errors.New("stream closed")
)

// StepFailure wraps an error with the step it occurred in.
type StepFailure struct {
	Step StepID
	Err  error
}

func (e *StepFailure) Error() string {
	return string(e.Step) + ": " + e.Err.Error()
}

func (e *StepFailure) Unwrap() error {
	return e.Err
}

// NewStepFailure creates a new StepFailure.
func NewStepFailure(step StepID, err error) *StepFailure {
	return &StepFailure{
		Step: step,
		Err:  err,
	}
}
