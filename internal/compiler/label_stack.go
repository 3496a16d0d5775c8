package compiler

// labelStack keeps the indices of the constructs currently open, innermost on top.
type labelStack[T any] struct {
	items []T
}

func (s *labelStack[T]) push(v T) {
	s.items = append(s.items, v)
}

func (s *labelStack[T]) pop() (T, bool) {
	var zero T
	if len(s.items) == 0 {
		return zero, false
	}
	v := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return v, true
}

func (s *labelStack[T]) peek() (T, bool) {
	var zero T
	if len(s.items) == 0 {
		return zero, false
	}
	return s.items[len(s.items)-1], true
}

func (s *labelStack[T]) len() int {
	return len(s.items)
}
