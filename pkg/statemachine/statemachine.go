package statemachine

import (
	"context"
	"fmt"
)

// Guard decides at runtime whether a transition may be taken.
type Guard[S, E comparable] func(ctx context.Context, from S, event E, data any) bool

// Transition is one row of the table.
type Transition[S, E comparable] struct {
	From   S
	To     S
	Event  E
	Guards []Guard[S, E]
}

type key[S, E comparable] struct {
	from  S
	event E
}

// Machine is an immutable transition table.
type Machine[S, E comparable] struct {
	rows  map[key[S, E]][]Transition[S, E]
	order []key[S, E]
}

// Option adds rows to a Machine under construction.
type Option[S, E comparable] func(*Machine[S, E])

// TransitionOption configures a single transition.
type TransitionOption[S, E comparable] func(*Transition[S, E])

// WithGuard adds a guard. All guards of a transition must pass.
func WithGuard[S, E comparable](g Guard[S, E]) TransitionOption[S, E] {
	return func(t *Transition[S, E]) {
		if g != nil {
			t.Guards = append(t.Guards, g)
		}
	}
}

// WithTransition adds a row. Several rows may share from and event; the
// first one whose guards pass wins.
func WithTransition[S, E comparable](from, to S, event E, opts ...TransitionOption[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) {
		t := Transition[S, E]{From: from, To: to, Event: event}
		for _, opt := range opts {
			opt(&t)
		}
		m.add(t)
	}
}

// WithTransitions adds several prepared rows at once.
func WithTransitions[S, E comparable](ts ...Transition[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) {
		for _, t := range ts {
			m.add(t)
		}
	}
}

// New builds a Machine from options.
func New[S, E comparable](opts ...Option[S, E]) *Machine[S, E] {
	m := &Machine[S, E]{rows: make(map[key[S, E]][]Transition[S, E])}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine[S, E]) add(t Transition[S, E]) {
	k := key[S, E]{from: t.From, event: t.Event}
	if _, ok := m.rows[k]; !ok {
		m.order = append(m.order, k)
	}
	m.rows[k] = append(m.rows[k], t)
}

// Next returns the state reached from from on event.
func (m *Machine[S, E]) Next(ctx context.Context, from S, event E, data any) (S, error) {
	rows, ok := m.rows[key[S, E]{from: from, event: event}]
	if !ok {
		return from, &ErrNoTransitionAvailable{State: fmt.Sprint(from), Event: fmt.Sprint(event)}
	}

rows:
	for _, t := range rows {
		for _, g := range t.Guards {
			if !g(ctx, from, event, data) {
				continue rows
			}
		}
		return t.To, nil
	}
	return from, &ErrTransitionRejected{State: fmt.Sprint(from), Event: fmt.Sprint(event)}
}

// Can reports whether event would move from to some state.
func (m *Machine[S, E]) Can(ctx context.Context, from S, event E, data any) bool {
	_, err := m.Next(ctx, from, event, data)
	return err == nil
}

// Allowed reports whether the table has a row leading from one state to another,
// regardless of event and guards.
func (m *Machine[S, E]) Allowed(from, to S) bool {
	for _, k := range m.order {
		if k.from != from {
			continue
		}
		for _, t := range m.rows[k] {
			if t.To == to {
				return true
			}
		}
	}
	return false
}

// Events lists the events that have at least one row leaving from, in insertion order.
func (m *Machine[S, E]) Events(from S) []E {
	var events []E
	for _, k := range m.order {
		if k.from == from {
			events = append(events, k.event)
		}
	}
	return events
}

// Terminal reports whether no transition leaves from.
func (m *Machine[S, E]) Terminal(from S) bool {
	return len(m.Events(from)) == 0
}
