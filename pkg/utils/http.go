// Package utils provides common utility functions.
package utils

import (
	"net/http"

	"github.com/google/uuid"
)

// UserAgent identifies these tools to the mailbox API.
const UserAgent = "outlookflat/1.0"

// ClientRequestIDHeader correlates a request with server-side logs.
const ClientRequestIDHeader = "client-request-id"

// HTTPHelper provides HTTP utility functions.
type HTTPHelper struct {
	newID func() string
}

// NewHTTPHelper creates a new HTTP helper that tags requests with random ids.
func NewHTTPHelper() *HTTPHelper {
	return &HTTPHelper{newID: uuid.NewString}
}

// NewHTTPHelperWithIDs creates a helper with a custom request id generator.
func NewHTTPHelperWithIDs(newID func() string) *HTTPHelper {
	return &HTTPHelper{newID: newID}
}

// BuildHeaders creates HTTP headers with defaults and a fresh request id.
// Custom headers replace defaults of the same name.
func (h *HTTPHelper) BuildHeaders(customHeaders map[string]string) http.Header {
	headers := http.Header{}

	// Add default headers
	headers.Set("User-Agent", UserAgent)
	headers.Set("Accept", "application/json")
	headers.Set(ClientRequestIDHeader, h.newID())

	// Add custom headers
	for key, value := range customHeaders {
		headers.Set(key, value)
	}

	return headers
}
