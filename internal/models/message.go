package models

// Message is a single exchange in a conversation as echoed back by the service.
// A text exchange carries OriginalText and TranslatedText; an audio exchange
// carries AudioURL and may leave the text fields empty.
type Message struct {
	ID             string    `json:"_id"`
	ConversationID string    `json:"conversation_id"`
	SenderRole     Role      `json:"sender_role"`
	OriginalText   *string   `json:"original_text,omitempty"`
	TranslatedText *string   `json:"translated_text,omitempty"`
	AudioURL       *string   `json:"audio_url,omitempty"`
	CreatedAt      Timestamp `json:"created_at"`
}

// IsAudio reports whether the message is an audio exchange.
func (m Message) IsAudio() bool {
	return m.AudioURL != nil && *m.AudioURL != ""
}

// Original returns the original text or "" when absent.
func (m Message) Original() string {
	return deref(m.OriginalText)
}

// Translated returns the translated text or "" when absent.
func (m Message) Translated() string {
	return deref(m.TranslatedText)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
