package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusString(t *testing.T) {
	assert.Equal(t, "healthy", StatusHealthy.String())
	assert.Equal(t, "degraded", StatusDegraded.String())
	assert.Equal(t, "unhealthy", StatusUnhealthy.String())
}

func TestResultChaining(t *testing.T) {
	r := Degraded("slow").
		WithDetail("status", 503).
		WithLatency(2 * time.Second)

	assert.Equal(t, StatusDegraded, r.Status)
	assert.Equal(t, "slow", r.Message)
	assert.Equal(t, 503, r.Details["status"])
	assert.Equal(t, 2*time.Second, r.Latency)
}
