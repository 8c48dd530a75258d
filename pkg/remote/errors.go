// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package remote

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"
)

var (
	// ErrNotFound is returned when a path or repository does not exist
	ErrNotFound = errors.New("remote: not found")

	// ErrNotAFile is returned when content is requested for a directory
	ErrNotAFile = errors.New("remote: path is not a file")
)

// forbiddenStatus matches 403 as a standalone status token, not inside a
// port, path segment or longer number
var forbiddenStatus = regexp.MustCompile(`(?:^|\s)403(?:$|[\s,;)])`)

// 🚦 RateLimitError reports an exhausted API quota
type RateLimitError struct {
	ResetAt   time.Time
	Remaining int
	Limit     int
	Message   string
}

func (e *RateLimitError) Error() string {
	msg := "rate limit exceeded"
	if e.Message != "" {
		msg = e.Message
	}
	if e.ResetAt.IsZero() {
		return "remote: " + msg
	}
	return fmt.Sprintf("remote: %s, resets at %s", msg, e.ResetAt.Format(time.RFC3339))
}

// ❌ APIError is a non-2xx response from the API
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// 🔍 IsRateLimited classifies err as a rate-limit failure. Typed errors are
// checked first; plain errors fall back to message inspection so that
// collaborators which only surface text still get retried.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusForbidden || apiErr.StatusCode == http.StatusTooManyRequests
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || forbiddenStatus.MatchString(msg)
}

// IsNotFound reports whether err means the resource does not exist
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}
