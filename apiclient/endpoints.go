package apiclient

import (
	"net/url"
	"strings"
)

// Endpoints holds request paths relative to the base URL.
type Endpoints struct {
	Login        string
	Register     string
	TokenRefresh string
	Logout       string
	Profile      string // current individual profile, GET and PATCH
	Account      string // current account
	Contacts     string
	Contact      string // single contact; "{id}" is replaced
}

// DefaultEndpoints are the backend's paths.
var DefaultEndpoints = Endpoints{
	Login:        "/login/",
	Register:     "/register/",
	TokenRefresh: "/token/refresh/",
	Logout:       "/logout/",
	Profile:      "/individuals/pk/",
	Account:      "/users/pk/",
	Contacts:     "/emergency-contacts/",
	Contact:      "/emergency-contacts/{id}/",
}

func (e Endpoints) withDefaults() Endpoints {
	set := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
		if !strings.HasPrefix(*v, "/") {
			*v = "/" + *v
		}
	}
	set(&e.Login, DefaultEndpoints.Login)
	set(&e.Register, DefaultEndpoints.Register)
	set(&e.TokenRefresh, DefaultEndpoints.TokenRefresh)
	set(&e.Logout, DefaultEndpoints.Logout)
	set(&e.Profile, DefaultEndpoints.Profile)
	set(&e.Account, DefaultEndpoints.Account)
	set(&e.Contacts, DefaultEndpoints.Contacts)
	set(&e.Contact, DefaultEndpoints.Contact)
	return e
}

func (e Endpoints) contact(id ID) string {
	return strings.ReplaceAll(e.Contact, "{id}", url.PathEscape(string(id)))
}
