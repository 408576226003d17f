package pipeline

import (
	"context"
)

// Pipe transforms or observes a subject.
type Pipe[T any] func(ctx context.Context, subject T) (Result[T], error)

// Entry is a registered pipe and its priority class.
type Entry[T any] struct {
	Pipe         Pipe[T]
	HighPriority bool
}

// Pipeline is an ordered, priority-bucketed list of pipes.
// It is not safe for concurrent mutation; finish registering pipes before
// calling Process.
type Pipeline[T any] struct {
	pipes []Entry[T]
}

// New creates an empty pipeline.
func New[T any]() *Pipeline[T] {
	return &Pipeline[T]{}
}

// Pipe registers fn. High-priority pipes are placed after the leading run of
// high-priority pipes, so they run before every normal pipe while keeping
// their own registration order. Normal pipes are appended.
// A nil fn is ignored. Pipe returns the receiver for chaining.
func (p *Pipeline[T]) Pipe(fn Pipe[T], highPriority bool) *Pipeline[T] {
	if fn == nil {
		return p
	}

	entry := Entry[T]{Pipe: fn, HighPriority: highPriority}
	if !highPriority {
		p.pipes = append(p.pipes, entry)
		return p
	}

	idx := 0
	for idx < len(p.pipes) && p.pipes[idx].HighPriority {
		idx++
	}

	p.pipes = append(p.pipes, Entry[T]{})
	copy(p.pipes[idx+1:], p.pipes[idx:])
	p.pipes[idx] = entry

	return p
}

// Process runs every pipe against subject in order and returns the final
// subject. An empty pipeline returns subject unchanged.
//
// If a pipe fails, Process stops and returns the subject as it stood before
// that pipe together with the pipe's error, unwrapped.
func (p *Pipeline[T]) Process(ctx context.Context, subject T) (T, error) {
	if p == nil {
		return subject, nil
	}

	current := subject
	for _, entry := range p.pipes {
		result, err := entry.Pipe(ctx, current)
		if err != nil {
			return current, err
		}
		if v, ok := result.Replacement(); ok {
			current = v
		}
	}

	return current, nil
}

// Pipes returns a copy of the registered entries in execution order.
func (p *Pipeline[T]) Pipes() []Entry[T] {
	if p == nil {
		return nil
	}
	out := make([]Entry[T], len(p.pipes))
	copy(out, p.pipes)
	return out
}

// SetPipes replaces all entries with a copy of pipes, verbatim. Priority
// classes are not re-sorted.
func (p *Pipeline[T]) SetPipes(pipes []Entry[T]) {
	p.pipes = make([]Entry[T], 0, len(pipes))
	for _, e := range pipes {
		if e.Pipe != nil {
			p.pipes = append(p.pipes, e)
		}
	}
}

// Len returns the number of registered pipes.
func (p *Pipeline[T]) Len() int {
	if p == nil {
		return 0
	}
	return len(p.pipes)
}
