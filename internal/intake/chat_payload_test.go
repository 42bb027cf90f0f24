package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChatMessageText(t *testing.T) {
	body := []byte(`{
		"entry": [{"changes": [{"value": {"messages": [
			{"from": "+15551234", "id": "wamid.1", "type": "text", "text": {"body": "hola"}}
		]}}]}]
	}`)
	msg, err := ParseChatMessage(body)
	require.NoError(t, err)
	assert.Equal(t, "+15551234", msg.From)
	assert.Equal(t, "text", msg.Type)
	assert.Equal(t, "hola", msg.Text)
}

func TestParseChatMessageImage(t *testing.T) {
	body := []byte(`{
		"entry": [{"changes": [{"value": {"messages": [
			{"from": "+15551234", "id": "wamid.2", "type": "image", "image": {"id": "media-1"}}
		]}}]}]
	}`)
	msg, err := ParseChatMessage(body)
	require.NoError(t, err)
	assert.Equal(t, "media-1", msg.MediaID)
}

func TestParseChatMessageDocument(t *testing.T) {
	body := []byte(`{
		"entry": [{"changes": [{"value": {"messages": [
			{"from": "+15551234", "id": "wamid.3", "type": "document", "document": {"id": "media-2"}}
		]}}]}]
	}`)
	msg, err := ParseChatMessage(body)
	require.NoError(t, err)
	assert.Equal(t, "media-2", msg.MediaID)
}

func TestParseChatMessageRejectsUnknownType(t *testing.T) {
	body := []byte(`{
		"entry": [{"changes": [{"value": {"messages": [
			{"from": "+15551234", "id": "wamid.4", "type": "sticker"}
		]}}]}]
	}`)
	_, err := ParseChatMessage(body)
	assert.ErrorIs(t, err, ErrMalformedChatPayload)
}

func TestParseChatMessageRejectsEmptyEnvelope(t *testing.T) {
	_, err := ParseChatMessage([]byte(`{"entry": []}`))
	assert.ErrorIs(t, err, ErrMalformedChatPayload)
}

func TestParseChatMessageRejectsInvalidJSON(t *testing.T) {
	_, err := ParseChatMessage([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedChatPayload)
}

func TestParseChatMessageRejectsMissingFrom(t *testing.T) {
	body := []byte(`{
		"entry": [{"changes": [{"value": {"messages": [
			{"id": "wamid.5", "type": "text", "text": {"body": "hi"}}
		]}}]}]
	}`)
	_, err := ParseChatMessage(body)
	assert.ErrorIs(t, err, ErrMalformedChatPayload)
}
