package tiledesk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSupportRequest(t *testing.T) {
	body := []byte(`{
		"payload": {
			"text": "hello there",
			"id_project": "proj-1",
			"request": {"request_id": "support-group-abc123"}
		},
		"token": "JWT xyz"
	}`)

	sr, err := ParseSupportRequest(body)
	require.NoError(t, err)
	assert.Equal(t, "support-group-abc123", sr.RequestID)
	assert.Equal(t, "proj-1", sr.ProjectID)
	assert.Equal(t, "hello there", sr.Text)
	assert.Equal(t, "JWT xyz", sr.Token)
}

func TestParseSupportRequestFallsBackToRecipient(t *testing.T) {
	body := []byte(`{"payload": {"text": "hi", "recipient": "support-group-r1"}}`)

	sr, err := ParseSupportRequest(body)
	require.NoError(t, err)
	assert.Equal(t, "support-group-r1", sr.RequestID)
}

func TestParseSupportRequestRejectsMissingConversation(t *testing.T) {
	_, err := ParseSupportRequest([]byte(`{"payload": {"text": "hi"}}`))
	assert.Error(t, err)

	_, err = ParseSupportRequest([]byte(`not json`))
	assert.Error(t, err)
}
