package models

// Text is one passage of the race corpus. IDs are dense indices starting at 0
// so a random id can be drawn from [0, count).
type Text struct {
	ID   int    `json:"id" yaml:"id"`
	Body string `json:"text" yaml:"text"`
}
