package tracker

// Subscribe registers fn to be called with the field name after every write.
// Subscribers are called synchronously, in subscription order, on the
// goroutine performing the write. The returned func cancels this
// subscription only; calling it again is a no-op.
func (m *Mirror) Subscribe(fn func(field string)) (unsubscribe func()) {
	m.subsMu.Lock()
	m.nextID++
	id := m.nextID
	m.subs = append(m.subs, subscription{id: id, fn: fn})
	m.subsMu.Unlock()

	return func() { m.unsubscribe(id) }
}

// Subscribers returns the number of active subscriptions.
func (m *Mirror) Subscribers() int {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	return len(m.subs)
}

func (m *Mirror) unsubscribe(id uint64) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	for i, s := range m.subs {
		if s.id == id {
			// Copy so a notify already ranging over the old slice is unaffected.
			next := make([]subscription, 0, len(m.subs)-1)
			next = append(next, m.subs[:i]...)
			next = append(next, m.subs[i+1:]...)
			m.subs = next
			return
		}
	}
}

func (m *Mirror) notify(field string) {
	m.subsMu.Lock()
	subs := m.subs
	m.subsMu.Unlock()

	for _, s := range subs {
		s.fn(field)
	}
}
