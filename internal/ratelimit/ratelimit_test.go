package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow_BurstThenDeny(t *testing.T) {
	krl := New(1, 2)

	assert.True(t, krl.Allow("elevenlabs"))
	assert.True(t, krl.Allow("elevenlabs"))
	assert.False(t, krl.Allow("elevenlabs"), "burst exhausted")
}

func TestAllow_KeysIndependent(t *testing.T) {
	krl := New(1, 1)

	assert.True(t, krl.Allow("elevenlabs"))
	assert.False(t, krl.Allow("elevenlabs"))

	// A different provider still has its full burst.
	assert.True(t, krl.Allow("openai"))
}

func TestWait_RespectsContext(t *testing.T) {
	krl := New(0.01, 1)
	require.True(t, krl.Allow("slow"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := krl.Wait(ctx, "slow")
	assert.Error(t, err, "wait should give up when the context expires")
}

func TestWait_ImmediateWhenTokensAvailable(t *testing.T) {
	krl := New(100, 5)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, krl.Wait(ctx, "fast"))
}
