package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engagekit/verity/internal/domain"
)

func TestNewPublisher_DefaultSubject(t *testing.T) {
	// RetryOnFailedConnect keeps construction working without a broker;
	// messages buffer until the connection comes up.
	pub, err := NewPublisher("nats://127.0.0.1:42229", "", Options{MaxReconnects: 1})
	require.NoError(t, err)
	t.Cleanup(pub.Close)

	assert.Equal(t, DefaultSubject, pub.subject)
}

func TestPublisher_PublishBuffersWhileDisconnected(t *testing.T) {
	pub, err := NewPublisher("nats://127.0.0.1:42229", "verity.test", Options{MaxReconnects: 1})
	require.NoError(t, err)
	t.Cleanup(pub.Close)

	result := &domain.VerificationResult{
		Status:        domain.StatusPassed,
		Passed:        true,
		CombinedScore: 0.8,
		RequestID:     "req-1",
	}
	assert.NoError(t, pub.Publish(context.Background(), result))
}
