// Package fn holds the small generic helpers shared by the extraction pipeline.
package fn

import "fmt"

// Result is either a value or the error that prevented producing it.
type Result[T any] struct {
	val T
	err error
	ok  bool
}

// Ok creates a successful Result.
func Ok[T any](v T) Result[T] {
	return Result[T]{val: v, ok: true}
}

// Err creates a failed Result from an error.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Errf creates a failed Result from a formatted string.
func Errf[T any](format string, args ...any) Result[T] {
	return Result[T]{err: fmt.Errorf(format, args...)}
}

func (r Result[T]) IsOk() bool { return r.ok }

// Unwrap returns the value and error.
func (r Result[T]) Unwrap() (T, error) { return r.val, r.err }

// Recover runs f and turns a panic into a failed Result.
func Recover[T any](f func() Result[T]) (r Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			r = Errf[T]("panic: %v", p)
		}
	}()
	return f()
}

// Partition splits results into their values and their errors, keeping order.
func Partition[T any](results []Result[T]) ([]T, []error) {
	vals := make([]T, 0, len(results))
	var errs []error
	for _, r := range results {
		if r.ok {
			vals = append(vals, r.val)
			continue
		}
		errs = append(errs, r.err)
	}
	return vals, errs
}
