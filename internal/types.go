package internal

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/valpere/bolcha/internal/detector"
)

// Message is a chat message as seen by the translation core. Text and
// OriginalLang never change after creation; Translations only grows.
type Message struct {
	ID           string            `json:"id"`
	RoomID       string            `json:"room_id"`
	Author       string            `json:"author"`
	Text         string            `json:"text"`
	OriginalLang string            `json:"original_lang"`
	Translations map[string]string `json:"translations,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// NewMessage builds a message with a fresh id, NFC-normalised text and the
// detected original language.
func NewMessage(roomID, author, text string) Message {
	text = norm.NFC.String(strings.TrimRight(text, " \t\r\n"))
	return Message{
		ID:           uuid.New().String(),
		RoomID:       roomID,
		Author:       author,
		Text:         text,
		OriginalLang: detector.Detect(text),
		Translations: map[string]string{},
		CreatedAt:    time.Now().UTC(),
	}
}

// Translation returns the persisted translation for lang, if any.
func (m Message) Translation(lang string) (string, bool) {
	t, ok := m.Translations[lang]
	if !ok || t == "" {
		return "", false
	}
	return t, true
}
