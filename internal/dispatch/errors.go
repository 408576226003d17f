package dispatch

import (
	"errors"
	"fmt"
)

// RequestNotFoundError is returned when a group has no request with the
// given name.
type RequestNotFoundError struct {
	RequestName string
	GroupName   string
	Connector   string
}

func (e *RequestNotFoundError) Error() string {
	return fmt.Sprintf("request %q not found in group %q of connector %q", e.RequestName, e.GroupName, e.Connector)
}

// IsRequestNotFound reports whether err is or wraps a *RequestNotFoundError.
func IsRequestNotFound(err error) bool {
	var nf *RequestNotFoundError
	return errors.As(err, &nf)
}
