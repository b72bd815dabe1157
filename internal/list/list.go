// Package list implements the intrusive doubly-linked list used
// throughout the kernel core (spec §9 design notes): every subsystem that
// needs O(1) removal from a known element — trap handler chains, ready
// queues, free-region groups, device buckets — uses one of these instead
// of allocating wrapper nodes per insertion.
//
// Go has no free-form pointer embedding into caller structs the way the
// original C (list_node_t embedded as a struct member) or biscuit's own
// container/list.List usage do, so each element gets its own *Node[T]
// returned by the insert call; callers hold onto that node exactly the way
// biscuit's fs.BlkList_t holds a *list.Element for O(1) removal.
package list

// Node is one link in a List. The zero value is not a valid node; obtain
// one from a List's insert methods.
type Node[T any] struct {
	list       *List[T]
	prev, next *Node[T]
	Value      T
}

// Next returns the following node, or nil at the list's back.
func (n *Node[T]) Next() *Node[T] {
	if n == nil {
		return nil
	}
	return n.next
}

// Prev returns the preceding node, or nil at the list's front.
func (n *Node[T]) Prev() *Node[T] {
	if n == nil {
		return nil
	}
	return n.prev
}

// List is an intrusive doubly-linked list of Node[T].
type List[T any] struct {
	front, back *Node[T]
	length      int
}

// New returns an empty list.
func New[T any]() *List[T] { return &List[T]{} }

// Len returns the number of elements currently linked.
func (l *List[T]) Len() int { return l.length }

// Front returns the first node, or nil if the list is empty.
func (l *List[T]) Front() *Node[T] { return l.front }

// Back returns the last node, or nil if the list is empty.
func (l *List[T]) Back() *Node[T] { return l.back }

// PushFront inserts value at the front and returns its node.
func (l *List[T]) PushFront(value T) *Node[T] {
	n := &Node[T]{list: l, Value: value, next: l.front}
	if l.front != nil {
		l.front.prev = n
	} else {
		l.back = n
	}
	l.front = n
	l.length++
	return n
}

// PushBack inserts value at the back and returns its node.
func (l *List[T]) PushBack(value T) *Node[T] {
	n := &Node[T]{list: l, Value: value, prev: l.back}
	if l.back != nil {
		l.back.next = n
	} else {
		l.front = n
	}
	l.back = n
	l.length++
	return n
}

// InsertAfter inserts value immediately after an existing node belonging
// to l and returns the new node. Panics if after is nil or foreign.
func (l *List[T]) InsertAfter(after *Node[T], value T) *Node[T] {
	if after == nil || after.list != l {
		panic("list: InsertAfter with foreign or nil node")
	}
	n := &Node[T]{list: l, Value: value, prev: after, next: after.next}
	if after.next != nil {
		after.next.prev = n
	} else {
		l.back = n
	}
	after.next = n
	l.length++
	return n
}

// InsertBefore inserts value immediately before an existing node belonging
// to l and returns the new node. Panics if before is nil or foreign.
func (l *List[T]) InsertBefore(before *Node[T], value T) *Node[T] {
	if before == nil || before.list != l {
		panic("list: InsertBefore with foreign or nil node")
	}
	n := &Node[T]{list: l, Value: value, next: before, prev: before.prev}
	if before.prev != nil {
		before.prev.next = n
	} else {
		l.front = n
	}
	before.prev = n
	l.length++
	return n
}

// RemoveFront removes and returns the front element.
func (l *List[T]) RemoveFront() (T, bool) {
	if l.front == nil {
		var zero T
		return zero, false
	}
	n := l.front
	l.Remove(n)
	return n.Value, true
}

// RemoveBack removes and returns the back element.
func (l *List[T]) RemoveBack() (T, bool) {
	if l.back == nil {
		var zero T
		return zero, false
	}
	n := l.back
	l.Remove(n)
	return n.Value, true
}

// Remove unlinks n from l in O(1). It is a no-op if n is already detached
// from this particular list (guards against double-removal bugs).
func (l *List[T]) Remove(n *Node[T]) {
	if n == nil || n.list != l {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.front = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.back = n.prev
	}
	n.prev, n.next, n.list = nil, nil, nil
	l.length--
}

// Each calls f for every element front-to-back. f may remove the current
// node from the list (the iteration snapshots next before calling f).
func (l *List[T]) Each(f func(*Node[T])) {
	for n := l.front; n != nil; {
		next := n.next
		f(n)
		n = next
	}
}
