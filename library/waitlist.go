package library

// Waitlist is a FIFO queue of member ids waiting for a copy of one book.
type Waitlist []int

func (w *Waitlist) Enqueue(memberID int) { *w = append(*w, memberID) }

// Dequeue pops the front member id; ok is false when the queue is empty.
func (w *Waitlist) Dequeue() (memberID int, ok bool) {
	if len(*w) == 0 {
		return 0, false
	}
	memberID = (*w)[0]
	*w = (*w)[1:]
	if len(*w) == 0 {
		*w = nil
	}
	return memberID, true
}

func (w Waitlist) Empty() bool { return len(w) == 0 }

// Position is 1-based, 0 when memberID is not queued.
func (w Waitlist) Position(memberID int) int {
	for i, id := range w {
		if id == memberID {
			return i + 1
		}
	}
	return 0
}

func (w Waitlist) Contains(memberID int) bool { return w.Position(memberID) > 0 }

// Remove drops memberID from the queue, keeping the order of the others.
func (w *Waitlist) Remove(memberID int) bool {
	pos := w.Position(memberID)
	if pos == 0 {
		return false
	}
	*w = append((*w)[:pos-1], (*w)[pos:]...)
	if len(*w) == 0 {
		*w = nil
	}
	return true
}
