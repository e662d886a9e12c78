package interp

import "github.com/colmjr/English-compiler-sub000/pkg/runtime"

// Control flow travels through the executor as error values so that
// every statement-executing function propagates it explicitly. Each
// signal unwinds until the nearest construct that understands it:
// loops absorb break/continue, call frames absorb return, TryCatch
// absorbs thrown.

type breakSignal struct{}

func (breakSignal) Error() string { return "break outside loop" }

type continueSignal struct{}

func (continueSignal) Error() string { return "continue outside loop" }

type returnSignal struct{ value runtime.Value }

func (returnSignal) Error() string { return "return outside function" }

// thrownSignal carries a user Throw. Internal runtime faults arrive as
// *runtime.Error instead, but TryCatch treats the two identically: catch
// sees only the message string either way.
type thrownSignal struct{ message string }

func (t thrownSignal) Error() string { return t.message }

// thrownMessage extracts the catchable message from an error, reporting
// whether the error is catchable at all.
func thrownMessage(err error) (string, bool) {
	switch e := err.(type) {
	case thrownSignal:
		return e.message, true
	case *runtime.Error:
		return e.Msg, true
	default:
		return "", false
	}
}
