// Package statemachine supplies the Applier the Replica role is parametric
// over: a pure function from (state, Command) to (new state, Reply). The
// protocol core only ever depends on the Applier interface — this package
// exists to give the cmd/ binaries and tests something concrete to run.
package statemachine

import "github.com/senutpal/quorum/internal/command"

// Reply is the opaque result returned to the client that submitted the
// command.
type Reply struct {
	Text   string
	Result []byte
}

// Applier is a deterministic state transition function. Implementations
// must be pure with respect to their inputs: given the same state and
// command, they must produce the same new state and reply every time,
// since every correct replica runs it independently in slot order.
type Applier[S any] interface {
	Apply(state S, cmd command.Command) (S, Reply)
}

// ApplierFunc adapts a plain function to the Applier interface.
type ApplierFunc[S any] func(S, command.Command) (S, Reply)

func (f ApplierFunc[S]) Apply(state S, cmd command.Command) (S, Reply) {
	return f(state, cmd)
}
