package model

import "strings"

// Participant is the sign-in input accepted by the web form and the take
// command. Identifiers are numeric strings such as employee or phone numbers.
type Participant struct {
	Name       string `validate:"required,max=100"`
	Identifier string `validate:"required,number,max=32"`
}

// NewParticipant trims surrounding whitespace from both fields.
func NewParticipant(name, identifier string) Participant {
	return Participant{Name: strings.TrimSpace(name), Identifier: strings.TrimSpace(identifier)}
}
