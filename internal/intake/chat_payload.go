package intake

import (
	"encoding/json"
	"errors"
)

// ErrMalformedChatPayload is returned when the envelope doesn't contain a
// parseable message.
var ErrMalformedChatPayload = errors.New("intake: malformed chat payload")

// ChatMessage is the normalized shape the core cares about, pulled out of
// the platform-native envelope's entry[0].changes[0].value.messages[0].
type ChatMessage struct {
	From string `json:"from"`
	Type string `json:"type"` // text|image|document
	ID   string `json:"id"`
	Text string `json:"text,omitempty"`
	// MediaID holds image.id or document.id depending on Type.
	MediaID string `json:"media_id,omitempty"`
}

type chatEnvelope struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					From string `json:"from"`
					Type string `json:"type"`
					ID   string `json:"id"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
					Image struct {
						ID string `json:"id"`
					} `json:"image"`
					Document struct {
						ID string `json:"id"`
					} `json:"document"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ParseChatMessage extracts the first inbound message from the raw webhook
// body, or ErrMalformedChatPayload if the envelope shape doesn't match.
func ParseChatMessage(body []byte) (ChatMessage, error) {
	var env chatEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ChatMessage{}, ErrMalformedChatPayload
	}
	if len(env.Entry) == 0 || len(env.Entry[0].Changes) == 0 || len(env.Entry[0].Changes[0].Value.Messages) == 0 {
		return ChatMessage{}, ErrMalformedChatPayload
	}
	m := env.Entry[0].Changes[0].Value.Messages[0]

	msg := ChatMessage{From: m.From, Type: m.Type, ID: m.ID}
	switch m.Type {
	case "text":
		msg.Text = m.Text.Body
	case "image":
		msg.MediaID = m.Image.ID
	case "document":
		msg.MediaID = m.Document.ID
	default:
		return ChatMessage{}, ErrMalformedChatPayload
	}
	if msg.From == "" || msg.ID == "" {
		return ChatMessage{}, ErrMalformedChatPayload
	}
	return msg, nil
}
