package dc

import "context"

type action struct {
	name string
	run  func(ctx context.Context) error
}

// actionQueue holds work scheduled for the next flush. Actions run in the
// order they were queued; a failing action is dropped and the rest stay
// queued for the following flush.
type actionQueue struct {
	pending []action
}

func (q *actionQueue) push(name string, run func(ctx context.Context) error) {
	q.pending = append(q.pending, action{name: name, run: run})
}

// pushOnce queues the action unless one with the same name is already waiting.
func (q *actionQueue) pushOnce(name string, run func(ctx context.Context) error) {
	for _, a := range q.pending {
		if a.name == name {
			return
		}
	}
	q.push(name, run)
}

func (q *actionQueue) drain(ctx context.Context) error {
	for len(q.pending) > 0 {
		a := q.pending[0]
		q.pending = q.pending[1:]
		if err := a.run(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (q *actionQueue) clear() {
	q.pending = nil
}

func (q *actionQueue) len() int {
	return len(q.pending)
}
