package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockChecker is a test double for health checks
type mockChecker struct {
	name   string
	result *Result
	delay  time.Duration
}

func (m *mockChecker) Name() string {
	return m.name
}

func (m *mockChecker) Check(ctx context.Context) *Result {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return Unhealthy("check cancelled").
				WithDetail("error", ctx.Err().Error())
		}
	}
	return m.result
}

func TestManager_CheckKeepsRegistrationOrder(t *testing.T) {
	m := NewManager()
	m.AddChecker(&mockChecker{name: "first", result: Healthy("ok"), delay: 20 * time.Millisecond})
	m.AddChecker(&mockChecker{name: "second", result: Degraded("meh")})
	require.Equal(t, 2, m.Count())

	results := m.Check(context.Background())

	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].Name)
	assert.Equal(t, StatusHealthy, results[0].Status)
	assert.Positive(t, results[0].Latency)
	assert.Equal(t, "second", results[1].Name)
	assert.Equal(t, StatusDegraded, results[1].Status)
}

func TestManager_Timeout(t *testing.T) {
	m := NewManager().WithTimeout(10 * time.Millisecond)
	m.AddChecker(&mockChecker{name: "slow", result: Healthy("ok"), delay: time.Second})

	results := m.Check(context.Background())

	require.Len(t, results, 1)
	assert.Equal(t, StatusUnhealthy, results[0].Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), results[0].Details["error"])
}

func TestManager_NilResult(t *testing.T) {
	m := NewManager()
	m.AddChecker(&mockChecker{name: "broken"})

	results := m.Check(context.Background())

	assert.Equal(t, StatusUnhealthy, results[0].Status)
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name    string
		results []*Result
		want    Status
	}{
		{name: "empty", want: StatusHealthy},
		{name: "all healthy", results: []*Result{Healthy("a"), Healthy("b")}, want: StatusHealthy},
		{name: "one degraded", results: []*Result{Healthy("a"), Degraded("b")}, want: StatusDegraded},
		{name: "unhealthy wins", results: []*Result{Degraded("a"), Unhealthy("b"), Healthy("c")}, want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OverallStatus(tt.results))
		})
	}
}
