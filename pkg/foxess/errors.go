package foxess

import (
	"errors"
	"fmt"
	"net/url"
)

// ServerError is returned when the response envelope carries a non-zero errno.
type ServerError struct {
	Code int
	Msg  string
}

func (e *ServerError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("Server error %d: %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("Server error %d", e.Code)
}

// HTTPError is returned when the cloud responds with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// TransportError wraps connectivity failures such as DNS errors, refused
// connections and timeouts.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("URL Error: %v", e.reason())
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// reason strips the method and URL that *url.Error prefixes onto the cause.
func (e *TransportError) reason() error {
	var uerr *url.Error
	if errors.As(e.Err, &uerr) && uerr.Err != nil {
		return uerr.Err
	}
	return e.Err
}

// NotFoundError is returned when a real-time query response has no entry for
// the requested device.
type NotFoundError struct {
	DeviceSN string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("No data found for device %s", e.DeviceSN)
}
