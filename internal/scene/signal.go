package scene

// Signal is a list of subscribers notified synchronously in subscription order.
type Signal[T any] struct {
	nextID int
	subs   []subscriber[T]
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it.
func (s *Signal[T]) Subscribe(fn func(T)) (cancel func()) {
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber[T]{id: id, fn: fn})
	return func() {
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit calls every subscriber with v. Subscribers added during Emit are not called.
func (s *Signal[T]) Emit(v T) {
	subs := s.subs
	for _, sub := range subs {
		sub.fn(v)
	}
}

// Len returns the number of subscribers.
func (s *Signal[T]) Len() int { return len(s.subs) }
