package storefront

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// HTTPError is returned for any non-2xx response. Message is taken from the
// body's "message" or "error" field when present.
type HTTPError struct {
	Op      string
	Status  int
	Message string
	Body    []byte
}

func (e *HTTPError) Error() string {
	return e.Message
}

// IsStatus reports whether err wraps an *HTTPError with the given status.
func IsStatus(err error, status int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Status == status
}

// IsNotFound reports whether err wraps a 404 response.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

func errMissingField(op, field string) error {
	return errors.Errorf("%s: response has no %q", op, field)
}

func newHTTPError(op string, status int, body []byte) *HTTPError {
	msg := errorMessage(body)
	if msg == "" {
		msg = fmt.Sprintf("HTTP error! status: %d", status)
	}
	return &HTTPError{
		Op:      op,
		Status:  status,
		Message: msg,
		Body:    body,
	}
}

// errorMessage extracts the human-readable message from an error body. The
// backend uses {"message": ...} on some routes and {"error": ...} on others;
// "message" wins when both are set. Malformed or non-object bodies yield "".
func errorMessage(body []byte) string {
	d := jx.DecodeBytes(body)
	if d.Next() != jx.Object {
		return ""
	}

	var message, fallback string
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if d.Next() != jx.String {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return err
		}
		switch string(key) {
		case "message":
			message = v
		case "error":
			fallback = v
		}
		return nil
	})
	if err != nil {
		return ""
	}
	if message != "" {
		return message
	}
	return fallback
}
