package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingID is reported for a contact operation without an ID.
var ErrMissingID = errors.New("contact id is required")

// Contacts lists the emergency contacts of the signed-in user. Both a bare
// list and a paginated {"results": [...]} body are accepted.
func (c *Client) Contacts(ctx context.Context) ([]EmergencyContact, error) {
	cl, err := newCall("contacts_list", http.MethodGet, c.endpoints.Contacts, nil, true)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := c.execute(ctx, cl, &raw); err != nil {
		return nil, err
	}

	var list []EmergencyContact
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var page struct {
		Results []EmergencyContact `json:"results"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, c.errorFor(cl, ErrMalformedResponse, &response{status: http.StatusOK, body: raw}, err)
	}
	return page.Results, nil
}

// CreateContact adds an emergency contact. An empty relationship defaults to
// DefaultRelationship.
func (c *Client) CreateContact(ctx context.Context, contact EmergencyContact) (*EmergencyContact, error) {
	if contact.Relationship == "" {
		contact.Relationship = DefaultRelationship
	}
	contact.ID = ""
	if err := contact.Validate(); err != nil {
		return nil, err
	}
	return c.writeContact(ctx, "contacts_create", http.MethodPost, c.endpoints.Contacts, contact)
}

// UpdateContact replaces the fields of the contact with the given ID.
func (c *Client) UpdateContact(ctx context.Context, id ID, contact EmergencyContact) (*EmergencyContact, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailure, ErrMissingID)
	}
	contact.ID = id
	if err := contact.Validate(); err != nil {
		return nil, err
	}
	return c.writeContact(ctx, "contacts_update", http.MethodPatch, c.endpoints.contact(id), contact)
}

func (c *Client) writeContact(ctx context.Context, name, method, path string, contact EmergencyContact) (*EmergencyContact, error) {
	cl, err := newCall(name, method, path, contact, true)
	if err != nil {
		return nil, err
	}
	var out EmergencyContact
	if err := c.execute(ctx, cl, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteContact removes the contact with the given ID.
func (c *Client) DeleteContact(ctx context.Context, id ID) error {
	if id == "" {
		return fmt.Errorf("%w: %w", ErrValidationFailure, ErrMissingID)
	}
	cl, err := newCall("contacts_delete", http.MethodDelete, c.endpoints.contact(id), nil, true)
	if err != nil {
		return err
	}
	return c.execute(ctx, cl, nil)
}
