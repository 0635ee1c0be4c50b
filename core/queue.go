package overlay

// itemQueue is the pending-item FIFO. Insertion order is the only ordering
// guarantee. The queue is not safe for concurrent use; the controller's
// lock guards it.
type itemQueue struct {
	items []QueueItem
}

// Push appends an item to the queue.
func (q *itemQueue) Push(item QueueItem) {
	q.items = append(q.items, item)
}

// Shift removes and returns the earliest queued item, or nil if empty.
func (q *itemQueue) Shift() QueueItem {
	if len(q.items) == 0 {
		return nil
	}

	item := q.items[0]
	q.items = q.items[1:]
	return item
}

// Clear removes all queued items.
func (q *itemQueue) Clear() {
	q.items = nil
}

// Len reports the number of pending items.
func (q *itemQueue) Len() int {
	return len(q.items)
}
