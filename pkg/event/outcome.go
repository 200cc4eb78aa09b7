package event

// Outcome is the structured result of executing an action. Messages and
// Events keep their emission order; the replay harness compares event
// sequences across runs, so order is part of the contract.
type Outcome struct {
	Success  bool     `json:"success"`
	TookTurn bool     `json:"took_turn"`
	Messages []string `json:"messages,omitempty"`
	Events   []Event  `json:"events,omitempty"`
}

// Failure builds a failed outcome carrying a human-readable reason.
// A failed outcome never consumes the actor's turn.
func Failure(reason string) Outcome {
	return Outcome{Success: false, Messages: []string{reason}}
}

// AddMessage appends a message to the outcome.
func (o *Outcome) AddMessage(msg string) {
	o.Messages = append(o.Messages, msg)
}

// AddEvent appends an event to the outcome.
func (o *Outcome) AddEvent(ev Event) {
	o.Events = append(o.Events, ev)
}
