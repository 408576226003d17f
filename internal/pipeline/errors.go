package pipeline

import (
	"errors"
	"fmt"
)

// DeniedError is returned by a pipe that refuses to let a request or
// response continue.
type DeniedError struct {
	StageName string
	Reason    string
}

// Error implements the error interface.
func (e *DeniedError) Error() string {
	return fmt.Sprintf("pipeline denied by %s: %s", e.StageName, e.Reason)
}

// IsDenied returns true if err is or wraps a DeniedError.
func IsDenied(err error) bool {
	var denied *DeniedError
	return errors.As(err, &denied)
}
