package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate client config
	if c.Client.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "client.base_url",
			Message: "API base URL is required",
		})
	} else if u, err := url.Parse(c.Client.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "client.base_url",
			Message: fmt.Sprintf("invalid API base URL: %s", c.Client.BaseURL),
		})
	}

	if c.Client.RequestTimeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "client.request_timeout",
			Message: "request_timeout must not be negative",
		})
	}

	if c.Client.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "client.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Client.MaxUploadBytes < 1 {
		errors = append(errors, ValidationError{
			Field:   "client.max_upload_bytes",
			Message: "max_upload_bytes must be positive",
		})
	}

	// Validate session config
	switch c.Session.SelectionPolicy {
	case SelectionPolicyStrict, SelectionPolicyLegacy:
	default:
		errors = append(errors, ValidationError{
			Field:   "session.selection_policy",
			Message: fmt.Sprintf("selection_policy must be %q or %q", SelectionPolicyStrict, SelectionPolicyLegacy),
		})
	}

	// Validate UI config
	if c.UI.StatusClearDelay < 0 {
		errors = append(errors, ValidationError{
			Field:   "ui.status_clear_delay",
			Message: "status_clear_delay must not be negative",
		})
	}

	return errors
}
