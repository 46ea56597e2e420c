package task

import (
	"container/heap"
	"sync"
	"time"
)

// scheduledItem — отложенный перезапуск задачи.
type scheduledItem struct {
	id string
	at time.Time
}

// scheduleQueue — очередь перезапусков с приоритетом по времени next_run_at.
// Отмененные и удаленные задачи фильтруются при срабатывании, а не при
// отмене: refire сверяется с актуальным состоянием реестра.
type scheduleQueue struct {
	mu    sync.Mutex
	items scheduleHeap
}

func newScheduleQueue() *scheduleQueue {
	return &scheduleQueue{}
}

func (q *scheduleQueue) push(id string, at time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.items, scheduledItem{id: id, at: at})
}

// peek возвращает ближайший по времени элемент, не извлекая его.
func (q *scheduleQueue) peek() (scheduledItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return scheduledItem{}, false
	}
	return q.items[0], true
}

// popDue извлекает элемент, если его время уже наступило.
func (q *scheduleQueue) popDue(now time.Time) (scheduledItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 || q.items[0].at.After(now) {
		return scheduledItem{}, false
	}
	return heap.Pop(&q.items).(scheduledItem), true
}

type scheduleHeap []scheduledItem

func (h scheduleHeap) Len() int           { return len(h) }
func (h scheduleHeap) Less(i, j int) bool { return h[i].at.Before(h[j].at) }
func (h scheduleHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *scheduleHeap) Push(x any)        { *h = append(*h, x.(scheduledItem)) }
func (h *scheduleHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// schedulerLoop ждет ближайший next_run_at и перезапускает созревшие
// периодические задачи. Просыпается при добавлении нового элемента очереди
// и завершается при остановке менеджера.
func (m *Manager) schedulerLoop() {
	defer m.wg.Done()

	const idleWait = time.Hour

	timer := time.NewTimer(idleWait)
	defer timer.Stop()

	for {
		wait := idleWait
		if next, ok := m.queue.peek(); ok {
			wait = time.Until(next.at)
			if wait < 0 {
				wait = 0
			}
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-m.rootCtx.Done():
			return
		case <-m.wake:
			// Очередь изменилась, пересчитываем время ожидания.
		case <-timer.C:
			now := time.Now()
			for {
				item, ok := m.queue.popDue(now)
				if !ok {
					break
				}
				m.refire(item.id)
			}
		}
	}
}
