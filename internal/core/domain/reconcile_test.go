package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconcileReport_Converged(t *testing.T) {
	r := &ReconcileReport{AuthoritativeCount: 3, MirrorCountAfter: 3}
	assert.True(t, r.Converged())

	r.Failed = 1
	assert.False(t, r.Converged())

	r = &ReconcileReport{AuthoritativeCount: 3, MirrorCountAfter: 2}
	assert.False(t, r.Converged())
}

func TestReconcileReport_Duration(t *testing.T) {
	start := time.Now()
	r := &ReconcileReport{StartedAt: start, FinishedAt: start.Add(2 * time.Second)}
	assert.Equal(t, 2*time.Second, r.Duration())
}
