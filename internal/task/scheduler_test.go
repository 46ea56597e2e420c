package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleQueueOrdersByTime(t *testing.T) {
	q := newScheduleQueue()
	now := time.Now()

	q.push("later", now.Add(time.Hour))
	q.push("sooner", now.Add(time.Minute))
	q.push("soonest", now.Add(time.Second))

	next, ok := q.peek()
	require.True(t, ok)
	assert.Equal(t, "soonest", next.id)
}

func TestScheduleQueuePopDue(t *testing.T) {
	q := newScheduleQueue()
	now := time.Now()

	q.push("due", now.Add(-time.Second))
	q.push("future", now.Add(time.Hour))

	item, ok := q.popDue(now)
	require.True(t, ok)
	assert.Equal(t, "due", item.id)

	// Будущий элемент не извлекается раньше времени.
	_, ok = q.popDue(now)
	assert.False(t, ok)

	next, ok := q.peek()
	require.True(t, ok)
	assert.Equal(t, "future", next.id)
}

func TestScheduleQueueEmpty(t *testing.T) {
	q := newScheduleQueue()

	_, ok := q.peek()
	assert.False(t, ok)
	_, ok = q.popDue(time.Now())
	assert.False(t, ok)
}
