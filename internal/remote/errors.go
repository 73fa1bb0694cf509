package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v75/github"
)

// ErrCancelled is returned when the caller's context ended before the call
// completed. It is never retried.
var ErrCancelled = errors.New("request cancelled")

// HTTPError is any failed remote call that was not a cancellation. A zero
// StatusCode means the request never produced a response.
type HTTPError struct {
	StatusCode  int
	Message     string
	RateLimited bool
	Err         error
}

func (e *HTTPError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("remote request failed: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("remote request failed (%d): %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("remote request failed (%d)", e.StatusCode)
	}
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a 404 from the remote.
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsUnauthorized reports whether err is a 401 from the remote.
func IsUnauthorized(err error) bool {
	return statusOf(err) == http.StatusUnauthorized
}

// IsRateLimited reports whether err came from a primary or secondary rate
// limit.
func IsRateLimited(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.RateLimited
}

// IsCancelled reports whether err is a cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

func statusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// classify converts an error from the go-github client into ErrCancelled or
// *HTTPError.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCancelled) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	var he *HTTPError
	if errors.As(err, &he) {
		return err
	}

	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		return &HTTPError{StatusCode: responseStatus(rle.Response), Message: rle.Message, RateLimited: true, Err: err}
	}
	var arle *github.AbuseRateLimitError
	if errors.As(err, &arle) {
		return &HTTPError{StatusCode: responseStatus(arle.Response), Message: arle.Message, RateLimited: true, Err: err}
	}
	var er *github.ErrorResponse
	if errors.As(err, &er) {
		return &HTTPError{StatusCode: responseStatus(er.Response), Message: er.Message, Err: err}
	}
	return &HTTPError{Err: err}
}

func responseStatus(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
