package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextDelay(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:    5,
		InitialDelay:  time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2,
	}

	t.Run("GrowsExponentially", func(t *testing.T) {
		assert.Equal(t, time.Second, policy.NextDelay(1))
		assert.Equal(t, 2*time.Second, policy.NextDelay(2))
		assert.Equal(t, 4*time.Second, policy.NextDelay(3))
		assert.Equal(t, 8*time.Second, policy.NextDelay(4))
	})

	t.Run("ClampsToMaxDelay", func(t *testing.T) {
		assert.Equal(t, 10*time.Second, policy.NextDelay(5))
		assert.Equal(t, 10*time.Second, policy.NextDelay(20))
	})

	t.Run("AttemptBelowOneUsesFirstDelay", func(t *testing.T) {
		assert.Equal(t, time.Second, policy.NextDelay(0))
		assert.Equal(t, time.Second, policy.NextDelay(-3))
	})

	t.Run("ZeroValuePolicyStillBacksOff", func(t *testing.T) {
		var p RetryPolicy
		assert.Equal(t, time.Second, p.NextDelay(1))
		assert.Equal(t, 2*time.Second, p.NextDelay(2))
	})

	t.Run("FractionalFactor", func(t *testing.T) {
		p := RetryPolicy{InitialDelay: 100 * time.Millisecond, BackoffFactor: 1.5}
		assert.Equal(t, 100*time.Millisecond, p.NextDelay(1))
		assert.Equal(t, 150*time.Millisecond, p.NextDelay(2))
		assert.Equal(t, 225*time.Millisecond, p.NextDelay(3))
	})
}
