package adapter

import (
	"errors"
	"fmt"
	"strings"
)

// HTTPError is a non-200 reply from the provider.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP Error %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// IsHTTPError reports whether err carries a provider status failure.
func IsHTTPError(err error) bool {
	var target *HTTPError
	return errors.As(err, &target)
}

// errStreamIdle cancels a stream whose provider went quiet for too long.
var errStreamIdle = errors.New("stream idle timeout")
