package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/jonwraymond/guardian/tokenstore"
)

func TestClient_Contacts(t *testing.T) {
	contacts := []map[string]any{
		{"id": 1, "name": "Jane Doe", "relationship": "Spouse", "phone_number": "123-456-7890", "email": "jane@example.com"},
		{"id": 2, "name": "Mark Smith", "relationship": "Friend", "phone_number": "987-654-3210", "email": "mark@example.com"},
	}

	tests := []struct {
		name string
		body any
	}{
		{"bare list", contacts},
		{"paginated", map[string]any{"count": 2, "results": contacts}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeBackend(t)
			f.handle("/emergency-contacts/", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, tt.body)
			})
			c := newTestClient(t, f, tokenstore.NewMemoryStore())

			got, err := c.Contacts(context.Background())
			if err != nil {
				t.Fatalf("Contacts() error = %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("len(Contacts()) = %d, want 2", len(got))
			}
			if got[1].ID != "2" || got[1].Relationship != "Friend" {
				t.Errorf("Contacts()[1] = %+v", got[1])
			}
		})
	}
}

func TestClient_CreateContactDefaultsRelationship(t *testing.T) {
	f := newFakeBackend(t)
	f.handle("/emergency-contacts/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var c map[string]any
		_ = json.NewDecoder(r.Body).Decode(&c)
		c["id"] = 9
		writeJSON(w, http.StatusCreated, c)
	})
	c := newTestClient(t, f, tokenstore.NewMemoryStore())

	got, err := c.CreateContact(context.Background(), EmergencyContact{
		Name: "Ann Lee", PhoneNumber: "+1 555 010 2000", Email: "ann@example.com",
	})
	if err != nil {
		t.Fatalf("CreateContact() error = %v", err)
	}
	if got.ID != "9" {
		t.Errorf("ID = %q, want 9", got.ID)
	}
	if got.Relationship != DefaultRelationship {
		t.Errorf("Relationship = %q, want %q", got.Relationship, DefaultRelationship)
	}
}

func TestClient_CreateContactValidation(t *testing.T) {
	f := newFakeBackend(t)
	c := newTestClient(t, f, tokenstore.NewMemoryStore())

	tests := []struct {
		name    string
		contact EmergencyContact
	}{
		{"missing name", EmergencyContact{PhoneNumber: "123-456-7890", Email: "a@example.com"}},
		{"missing phone", EmergencyContact{Name: "A", Email: "a@example.com"}},
		{"missing email", EmergencyContact{Name: "A", PhoneNumber: "123-456-7890"}},
		{"bad phone", EmergencyContact{Name: "A", PhoneNumber: "call me", Email: "a@example.com"}},
		{"unknown relationship", EmergencyContact{Name: "A", PhoneNumber: "123-456-7890", Email: "a@example.com", Relationship: "Boss"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.CreateContact(context.Background(), tt.contact); !errors.Is(err, ErrValidationFailure) {
				t.Errorf("CreateContact() error = %v, want ErrValidationFailure", err)
			}
		})
	}
	if f.count("/emergency-contacts/") != 0 {
		t.Error("invalid contact was sent")
	}
}

func TestClient_UpdateAndDeleteContact(t *testing.T) {
	f := newFakeBackend(t)
	f.handle("/emergency-contacts/4/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPatch:
			var c map[string]any
			_ = json.NewDecoder(r.Body).Decode(&c)
			writeJSON(w, http.StatusOK, c)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	})
	c := newTestClient(t, f, tokenstore.NewMemoryStore())
	ctx := context.Background()

	updated, err := c.UpdateContact(ctx, "4", EmergencyContact{
		Name: "Jane Doe", PhoneNumber: "123-456-7890", Email: "jane@example.com", Relationship: "Sibling",
	})
	if err != nil {
		t.Fatalf("UpdateContact() error = %v", err)
	}
	if updated.ID != "4" || updated.Relationship != "Sibling" {
		t.Errorf("UpdateContact() = %+v", updated)
	}

	if err := c.DeleteContact(ctx, "4"); err != nil {
		t.Fatalf("DeleteContact() error = %v", err)
	}
	if got := f.count("/emergency-contacts/4/"); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}

	if err := c.DeleteContact(ctx, ""); !errors.Is(err, ErrMissingID) {
		t.Errorf("DeleteContact(\"\") error = %v, want ErrMissingID", err)
	}
}
