package classifier

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an oracle call produced no verdict.
type ErrorKind string

const (
	KindTransport    ErrorKind = "transport"
	KindQuota        ErrorKind = "quota"
	KindMalformed    ErrorKind = "malformed"
	KindUnrecognized ErrorKind = "unrecognized"
)

// OracleError is returned for any failed classification. It is never retried.
type OracleError struct {
	Kind ErrorKind
	Err  error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle %s error: %v", e.Kind, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// IsOracleError reports whether err is an OracleError, returning its kind.
func IsOracleError(err error) (ErrorKind, bool) {
	var oe *OracleError
	if errors.As(err, &oe) {
		return oe.Kind, true
	}
	return "", false
}
