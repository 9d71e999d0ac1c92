package testbench

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/i5heu/dataqueue/pkg/buffered"
	"github.com/i5heu/dataqueue/pkg/dataqueue"
)

func TestRunTimedTestDrains(t *testing.T) {
	q := dataqueue.New[*int](16)
	res := RunTimedTest(q, Config{NumProducers: 4, NumConsumers: 2}, 200*time.Millisecond,
		func(i int) *int { return &i },
		zaptest.NewLogger(t),
	)

	assert.Positive(t, res.Produced)
	assert.Equal(t, res.Produced, res.Consumed, "every accepted message must be consumed")
	assert.GreaterOrEqual(t, res.Elapsed, 200*time.Millisecond)
	assert.True(t, q.IsEmpty())
}

func TestRunTimedTestNilLogger(t *testing.T) {
	q := buffered.New[int](8)
	res := RunTimedTest(q, Config{NumProducers: 1, NumConsumers: 1}, 50*time.Millisecond,
		func(i int) int { return i }, nil)
	assert.Equal(t, res.Produced, res.Consumed)
}

func TestRunIntegrityTest(t *testing.T) {
	for _, cfg := range []Config{
		{NumProducers: 1, NumConsumers: 1},
		{NumProducers: 8, NumConsumers: 2},
		{NumProducers: 2, NumConsumers: 8},
	} {
		q := dataqueue.New[int](32)
		rep := RunIntegrityTest(q, cfg, 2000)

		require.True(t, rep.OK(), "duplicates=%v missing=%v", rep.Duplicates, rep.Missing)
		assert.Equal(t, cfg.NumProducers*2000, rep.Accepted+rep.Rejected)
		assert.LessOrEqual(t, rep.MaxObservedSize, 32)
		assert.True(t, q.IsEmpty())
	}
}

func TestIntegrityReportOK(t *testing.T) {
	assert.True(t, IntegrityReport{Accepted: 3, Dequeued: 3}.OK())
	assert.False(t, IntegrityReport{Accepted: 3, Dequeued: 2, Missing: []int{1}}.OK())
	assert.False(t, IntegrityReport{Accepted: 3, Dequeued: 4, Duplicates: []int{0}}.OK())
}
