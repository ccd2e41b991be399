package swipes

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrQuotaExceeded = errors.New("swipe quota exceeded")
	ErrTooFast       = errors.New("swiping too fast")
)

// TooFastError carries the burst limiter's cooldown. It matches ErrTooFast
// with errors.Is.
type TooFastError struct {
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return fmt.Sprintf("%s, retry in %ds", ErrTooFast, e.RetryAfter())
}

func (e TooFastError) Is(target error) bool {
	return target == ErrTooFast
}

// RetryAfter never reports less than one second.
func (e TooFastError) RetryAfter() int64 {
	return max(e.RetryAfterSec, 1)
}

func IsTooFast(err error) (TooFastError, bool) {
	var tf TooFastError
	ok := errors.As(err, &tf)
	return tf, ok
}
