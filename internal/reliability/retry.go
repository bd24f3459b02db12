package reliability

import (
	"context"
	"errors"
	"time"
)

// Permanent marks an error that a Policy must not retry.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// RetryableStatus reports whether an upstream HTTP status is worth another try.
func RetryableStatus(code int) bool {
	return code == 408 || code == 425 || code == 429 || (code >= 500 && code != 501 && code != 505)
}

// Policy retries an operation with doubling delays between Base and Cap.
type Policy struct {
	Retries int
	Base    time.Duration
	Cap     time.Duration
}

// Delay is the pause before retry n (1-based).
func (p Policy) Delay(n int) time.Duration {
	if n <= 1 || p.Base <= 0 {
		return max(p.Base, 0)
	}
	d := p.Base
	for i := 1; i < n; i++ {
		d *= 2
		if p.Cap > 0 && d >= p.Cap {
			return p.Cap
		}
	}
	return d
}

// Do runs op until it succeeds, returns a permanent error, the retries run
// out, or ctx ends. The last operation error is returned unwrapped.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for n := 0; n <= max(p.Retries, 0); n++ {
		if n > 0 {
			if werr := sleep(ctx, p.Delay(n)); werr != nil {
				return werr
			}
		}
		if err = op(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
