// Package queue очередь задач, упорядоченная по времени следующего выполнения.
package queue

import (
	"container/heap"
	"errors"

	"github.com/tonakai-s/toktok/internal/domain"
)

// ErrAlreadyQueued задача с таким именем уже в очереди
var ErrAlreadyQueued = errors.New("task is already queued")

type entry struct {
	task *domain.Task
	seq  uint64
}

// taskHeap реализует heap.Interface. При равном NextExecutionAt
// раньше выходит задача, добавленная раньше.
type taskHeap []entry

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	a, b := h[i].task.Info.NextExecutionAt, h[j].task.Info.NextExecutionAt
	if a.Equal(b) {
		return h[i].seq < h[j].seq
	}
	return a.Before(b)
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(entry)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = entry{}
	*h = old[:n-1]
	return e
}

// PriorityQueue min-heap задач. Не синхронизирована, доступ защищает владелец.
type PriorityQueue struct {
	items    taskHeap
	resident map[string]struct{}
	seq      uint64
}

// New создает пустую очередь
func New() *PriorityQueue {
	return &PriorityQueue{resident: make(map[string]struct{})}
}

// Push добавляет задачу. Повторное добавление задачи, которая уже в очереди,
// возвращает ErrAlreadyQueued.
func (q *PriorityQueue) Push(task *domain.Task) error {
	name := task.Name()
	if _, ok := q.resident[name]; ok {
		return ErrAlreadyQueued
	}

	q.seq++
	heap.Push(&q.items, entry{task: task, seq: q.seq})
	q.resident[name] = struct{}{}
	return nil
}

// Pop извлекает задачу с минимальным NextExecutionAt
func (q *PriorityQueue) Pop() (*domain.Task, bool) {
	if len(q.items) == 0 {
		return nil, false
	}

	e := heap.Pop(&q.items).(entry)
	delete(q.resident, e.task.Name())
	return e.task, true
}

// Peek возвращает ближайшую задачу, не извлекая ее
func (q *PriorityQueue) Peek() (*domain.Task, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	return q.items[0].task, true
}

// Len количество задач в очереди
func (q *PriorityQueue) Len() int {
	return len(q.items)
}

// Snapshot возвращает копии TaskInfo в порядке извлечения, не меняя очередь
func (q *PriorityQueue) Snapshot() []domain.TaskInfo {
	clone := make(taskHeap, len(q.items))
	copy(clone, q.items)

	infos := make([]domain.TaskInfo, 0, len(clone))
	for clone.Len() > 0 {
		infos = append(infos, heap.Pop(&clone).(entry).task.Info)
	}
	return infos
}
