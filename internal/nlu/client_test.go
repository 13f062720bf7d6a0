package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCredentials(t *testing.T) {
	creds, err := ParseCredentials([]byte(`{"project_id": "my-agent", "client_email": "bot@my-agent.iam.gserviceaccount.com"}`))
	require.NoError(t, err)
	assert.Equal(t, "my-agent", creds.ProjectID)
}

func TestParseCredentialsRejectsMalformed(t *testing.T) {
	_, err := ParseCredentials([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseCredentials([]byte(`{"client_email": "x@y"}`))
	assert.Error(t, err)
}

func TestDecodeResult(t *testing.T) {
	raw := []byte(`{
		"queryResult": {
			"queryText": "I want a human",
			"fulfillmentText": "Sure thing",
			"intent": {"displayName": "talk to agent", "isFallback": false},
			"intentDetectionConfidence": 0.87,
			"languageCode": "en"
		}
	}`)

	res, err := decodeResult(raw)
	require.NoError(t, err)
	assert.Equal(t, "I want a human", res.QueryText)
	assert.Equal(t, "talk to agent", res.Intent)
	assert.False(t, res.IsFallback)
	assert.InDelta(t, 0.87, res.Confidence, 1e-9)
	assert.Equal(t, "Sure thing", res.FulfillmentText)
	assert.Equal(t, "en", res.LanguageCode)
}

func TestDecodeResultFallbackIntent(t *testing.T) {
	raw := []byte(`{"queryResult": {"intent": {"displayName": "Default Fallback Intent", "isFallback": true}, "fulfillmentText": "Sorry?"}}`)

	res, err := decodeResult(raw)
	require.NoError(t, err)
	assert.True(t, res.IsFallback)
	assert.Equal(t, "Sorry?", res.FulfillmentText)
}
