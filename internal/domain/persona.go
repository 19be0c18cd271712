package domain

// Persona is a creator point of view whose knowledge biases the advice.
type Persona struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Summary     string `yaml:"summary" json:"-"`
	DataCount   int    `yaml:"data_count" json:"dataCount"`
}

// PersonaSection is one persona's part of a multi-persona answer.
type PersonaSection struct {
	PersonaID   string `json:"creatorId"`
	PersonaName string `json:"creatorName"`
	Content     string `json:"content"`
	Streaming   bool   `json:"isStreaming,omitempty"`
}
