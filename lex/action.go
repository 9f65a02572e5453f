package lex

// stateOp names what a matched rule does to the lexer's state stack once a
// pattern fires, beyond whatever token it emits.
type stateOp int

const (
	stateNone stateOp = iota
	stateSwap
	statePush
	statePop
)

// Action is what happens when a rule's pattern matches: optionally emit a
// token, optionally change the active lexer state. Grounded on
// ictiobus/lex's Action/SwapState/LexAs/LexAndSwapState/Discard, extended
// with a state stack (Push/Pop) so a lexer can return to whatever state it
// came from without the caller having to name it.
type Action struct {
	emit      bool
	tokenName string
	op        stateOp
	state     string
}

// Emit produces a token of the given name and keeps the current state.
func Emit(tokenName string) Action {
	return Action{emit: true, tokenName: tokenName}
}

// Discard matches the pattern and produces no token, e.g. for whitespace or
// comments.
func Discard() Action {
	return Action{}
}

// Swap switches the active state to state without emitting a token.
func Swap(state string) Action {
	return Action{op: stateSwap, state: state}
}

// Push saves the active state on the state stack and switches to state,
// without emitting a token.
func Push(state string) Action {
	return Action{op: statePush, state: state}
}

// Pop restores the state on top of the state stack, without emitting a
// token. Build does not check that Push/Pop pairs balance; popping an empty
// stack at lex time ends the stream with an ErrorToken.
func Pop() Action {
	return Action{op: statePop}
}

// AndSwap additionally switches the active state to state once the action's
// token (if any) has been produced.
func (a Action) AndSwap(state string) Action {
	a.op = stateSwap
	a.state = state
	return a
}

// AndPush additionally pushes the active state and switches to state.
func (a Action) AndPush(state string) Action {
	a.op = statePush
	a.state = state
	return a
}

// AndPop additionally restores the state on top of the state stack.
func (a Action) AndPop() Action {
	a.op = statePop
	return a
}
