package medium

import "fmt"

// AuthError is returned when the server rejects the "who am I" call
type AuthError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed, server said: %s: %s", e.Status, e.Body)
}

// PublishError is returned when the server rejects the create-post call
type PublishError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("error creating post, server said: %s: %s", e.Status, e.Body)
}
