// Package apierr defines the error taxonomy shared by the upstream API
// clients and the retry policy applied around their calls.
package apierr

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimit is returned when an upstream signals a rate-limit
	// condition (HTTP 409 for SEMA, HTTP 429 for Shopify).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrInvalidToken is returned when an upstream rejects the current
	// session token. The retry policy refreshes the token and retries once.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidContentToken is the content-token variant of ErrInvalidToken,
	// used by HTML-content endpoints.
	ErrInvalidContentToken = errors.New("invalid content token")
)

// APIError is a remote application failure: the upstream answered but
// reported not-success, or an HTTP status not otherwise classified. It is
// never retried.
type APIError struct {
	System  string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error: %s", e.System, e.Message)
}

// RecordError marks the failure of a single record within a batch. The
// reconciliation loop converts it into a message and continues.
type RecordError struct {
	Record string
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %s: %v", e.Record, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// ParentMissingError means a required parent entity could not be resolved
// locally. Per-record operations treat it as a RecordError; fetch setup
// treats it as fatal for the entity type.
type ParentMissingError struct {
	Entity string
	Key    string
}

func (e *ParentMissingError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

const (
	rateLimitTries = 13
	rateLimitDelay = 5 * time.Second
	tokenTries     = 2
)

// Do runs fn under the shared retry policy: rate-limit errors are retried
// with a fixed delay up to a bounded count, invalid-token errors trigger
// refresh and a single retry, anything else propagates immediately.
func Do(fn func() error, refresh func() error) error {
	tokenAttempts := 0
	rateAttempts := 0

	for {
		err := fn()
		if err == nil {
			return nil
		}

		switch {
		case errors.Is(err, ErrRateLimit):
			rateAttempts++
			if rateAttempts >= rateLimitTries {
				return err
			}
			time.Sleep(rateLimitDelay)

		case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrInvalidContentToken):
			tokenAttempts++
			if tokenAttempts >= tokenTries {
				return err
			}
			if refresh != nil {
				if refreshErr := refresh(); refreshErr != nil {
					return refreshErr
				}
			}

		default:
			return err
		}
	}
}
