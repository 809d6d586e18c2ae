package execution

import (
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
	"time"

	"ctr/internal/domain"
)

// Executor invokes a single test and classifies its outcome
type Executor interface {
	Execute(test domain.Test) domain.Outcome
}

// PanicError wraps a value recovered from a panicking test
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ErrNotInvokable is the cause of an errored outcome for a test whose body
// does not have a test signature.
var ErrNotInvokable = errors.New("test body is not invokable")

// Invoker calls test bodies on the current goroutine
type Invoker struct{}

// NewInvoker creates a new Invoker
func NewInvoker() *Invoker {
	return &Invoker{}
}

// Execute runs the test body. Panics are recovered here and never cross
// this boundary.
func (inv *Invoker) Execute(test domain.Test) (outcome domain.Outcome) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			outcome = domain.Outcome{
				Status: domain.StatusErrored,
				Cause:  &PanicError{Value: rec},
				Stack:  debug.Stack(),
			}
		}
		outcome.Duration = time.Since(start)
	}()

	fn := reflect.ValueOf(test.Body)
	if test.Signature == domain.SignatureInvalid || fn.Kind() != reflect.Func {
		return domain.Outcome{Status: domain.StatusErrored, Cause: ErrNotInvokable}
	}

	out := fn.Call(nil)

	switch test.Signature {
	case domain.SignatureBool:
		if out[0].Bool() {
			return domain.Outcome{Status: domain.StatusPassed}
		}
		return domain.Outcome{Status: domain.StatusFailed}
	case domain.SignatureError:
		if out[0].IsNil() {
			return domain.Outcome{Status: domain.StatusPassed}
		}
		return domain.Outcome{Status: domain.StatusErrored, Cause: out[0].Interface().(error)}
	default:
		return domain.Outcome{Status: domain.StatusPassed}
	}
}
