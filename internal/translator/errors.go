package translator

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport covers network errors and non-success HTTP statuses.
	ErrTransport = errors.New("transport failure")
	// ErrMalformed means the body could not be interpreted as a translation.
	ErrMalformed = errors.New("malformed response")
	// ErrRejected means the body carried a status field reporting failure.
	ErrRejected = errors.New("backend reported failure")
	// ErrHTMLPage means the body was an HTML document, usually an error page.
	ErrHTMLPage = errors.New("html page instead of translation")
	// ErrEmpty means the translation was empty after normalisation.
	ErrEmpty = errors.New("empty translation")
	// ErrWrongLanguage means output validation detected another language.
	ErrWrongLanguage = errors.New("translation in unexpected language")
)

// Error describes a failed submission to one endpoint.
type Error struct {
	Endpoint string
	Method   string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Endpoint, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsMalformed reports whether err is a response-shape failure rather than a
// transport one.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed) ||
		errors.Is(err, ErrHTMLPage) ||
		errors.Is(err, ErrEmpty) ||
		errors.Is(err, ErrRejected) ||
		errors.Is(err, ErrWrongLanguage)
}
