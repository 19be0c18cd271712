package domain

// DebateTurn is one persona's remark in a simulated discussion.
type DebateTurn struct {
	PersonaID   string
	PersonaName string
	Text        string
	ReplyTo     string
	Streaming   bool
}

// DebateFinal is the synthesized consensus that closes a discussion.
type DebateFinal struct {
	Text      string
	Streaming bool
}

// DebateScript is a parsed discussion: ordered turns and at most one final.
type DebateScript struct {
	Turns []DebateTurn
	Final *DebateFinal
}
