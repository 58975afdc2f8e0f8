package runners

import (
	"context"

	"github.com/pkg/errors"
)

// invokeHook runs a lifecycle hook, converting a panic into an error so a
// panicking hook behaves like one that returned the error.
func invokeHook(ctx context.Context, hook func(context.Context) error) (err error) {
	defer recoverToError(&err)
	return hook(ctx)
}

func invokeRunHook(ctx context.Context, hook func(context.Context) (string, error)) (failure string, err error) {
	defer recoverToError(&err)
	return hook(ctx)
}

func recoverToError(err *error) {
	if rec := recover(); rec != nil {
		if e, ok := rec.(error); ok {
			*err = e
			return
		}
		*err = errors.Errorf("%v", rec)
	}
}
