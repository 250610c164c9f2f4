package resource

import "fmt"

// NotHTMLOperationError is returned when an HTML-only operation, such as
// reading the page title, is invoked on a non-HTML resource.
type NotHTMLOperationError struct {
	URL         string
	ContentType string
}

func (e *NotHTMLOperationError) Error() string {
	return fmt.Sprintf(
		"operation requires HTML content: %q has content type %q",
		e.URL, e.ContentType,
	)
}
