package models

// Conversation is a consultation session as assigned by the remote service.
type Conversation struct {
	ID              string    `json:"_id"`
	DoctorLanguage  string    `json:"doctor_language"`
	PatientLanguage string    `json:"patient_language"`
	CreatedAt       Timestamp `json:"created_at"`
}

// ConversationSummary is one row of the conversation history listing.
type ConversationSummary struct {
	ID              string    `json:"_id"`
	DoctorLanguage  string    `json:"doctor_language"`
	PatientLanguage string    `json:"patient_language"`
	CreatedAt       Timestamp `json:"created_at"`
	Snippet         string    `json:"snippet,omitempty"`
}

// Summary is the generated medical summary of a conversation.
type Summary struct {
	ConversationID string `json:"-"`
	Text           string `json:"summary"`
}

// TargetLanguage returns the language a message from role is translated into.
func (c Conversation) TargetLanguage(role Role) string {
	if role == RoleDoctor {
		return c.PatientLanguage
	}
	return c.DoctorLanguage
}
