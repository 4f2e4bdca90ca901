package httputil

import (
	"net/http"
	"time"
)

const DefaultTimeout = 30 * time.Second

// UserAgent identifies us to NOAA endpoints, which ask for a contact string.
const UserAgent = "surfcast/1.0 (github.com/saltcreek/surfcast)"

// NewClient returns an HTTP client with standard timeout configuration.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
	}
}
