package memory

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishRecordsMessages(t *testing.T) {
	t.Parallel()

	p := NewPublisher()
	id, err := p.Publish(context.Background(), "scan-summaries", map[string]string{"postcode": "3220"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := p.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "scan-summaries", msgs[0].Topic)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(msgs[0].Data, &payload))
	require.Equal(t, "3220", payload["postcode"])
}

func TestPublishRejectsUnmarshalablePayload(t *testing.T) {
	t.Parallel()

	p := NewPublisher()
	_, err := p.Publish(context.Background(), "topic", make(chan int))
	require.Error(t, err)
	require.Empty(t, p.Messages())
}
