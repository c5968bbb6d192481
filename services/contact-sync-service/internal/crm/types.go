package crm

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingToken is returned by every call when no bearer token is configured.
var ErrMissingToken = errors.New("crm: bearer token not configured")

// Owner is a CRM user that contacts can be assigned to.
type Owner struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Archived  bool   `json:"archived,omitempty"`
}

// Contact is the CRM's representation of an upserted contact.
type Contact struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	Archived   bool           `json:"archived"`
}

// APIError is a non-2xx answer from the CRM.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crm %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

type ownersPage struct {
	Results []Owner `json:"results"`
	Paging  *struct {
		Next *struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging"`
}

type upsertRequest struct {
	Properties map[string]string `json:"properties"`
}
