package domain

// MediaSource is the input of a content analysis: either downloaded bytes
// or a URL the analyzer can read by itself.
type MediaSource struct {
	Data     []byte
	MIMEType string
	URL      string
}

// CompletionRequest is one streamed persona completion.
type CompletionRequest struct {
	SystemPrompt string
	History      []ChatMessage
	UserMessage  string
}
