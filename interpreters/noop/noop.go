package noop

import (
	"context"
	"log"

	"github.com/Comcast/kexec/term"
)

// Interpreter is a core.Interpreter whose hooks always decline, so
// every application they implement stays unevaluated.
type Interpreter struct {
	// Silent, if false, will suppress warning log messages.
	Silent bool
}

func (i *Interpreter) Compile(ctx context.Context, code interface{}) (interface{}, error) {
	if !i.Silent {
		log.Printf("warning: Using Interpreter for compilation")
	}
	return nil, nil
}

func (i *Interpreter) Exec(ctx context.Context, args []term.Term, code interface{}, compiled interface{}) (term.Term, error) {
	if !i.Silent {
		log.Printf("warning: Using Interpreter for execution")
	}
	return nil, nil
}

func NewInterpreter() *Interpreter {
	return &Interpreter{}
}
