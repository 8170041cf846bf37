package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// ID is a backend identifier. The backend sends integers; strings are
// accepted as well.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// User is the profile returned by the backend. Fields the client does not
// know about are kept in Extra and written back unchanged.
type User struct {
	ID          ID
	Username    string
	Email       string
	UserType    string
	FirstName   string
	LastName    string
	PhoneNumber string
	Extra       map[string]json.RawMessage
}

func (u *User) field(name string) *string {
	switch name {
	case "username":
		return &u.Username
	case "email":
		return &u.Email
	case "user_type":
		return &u.UserType
	case "first_name":
		return &u.FirstName
	case "last_name":
		return &u.LastName
	case "phone_number":
		return &u.PhoneNumber
	}
	return nil
}

var userFieldNames = []string{"username", "email", "user_type", "first_name", "last_name", "phone_number"}

func (u *User) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*u = User{}
	for k, v := range raw {
		if k == "id" {
			if err := u.ID.UnmarshalJSON(v); err != nil {
				return fmt.Errorf("user: %w", err)
			}
			continue
		}
		if dst := u.field(k); dst != nil {
			if string(v) == "null" {
				continue
			}
			if err := json.Unmarshal(v, dst); err != nil {
				return fmt.Errorf("user.%s: %w", k, err)
			}
			continue
		}
		if u.Extra == nil {
			u.Extra = make(map[string]json.RawMessage)
		}
		u.Extra[k] = v
	}

	// Individual profiles nest the account under "details".
	if u.Username == "" {
		if details, ok := u.Extra["details"]; ok {
			var d struct {
				Username string `json:"username"`
				Email    string `json:"email"`
			}
			if json.Unmarshal(details, &d) == nil {
				u.Username = d.Username
				if u.Email == "" {
					u.Email = d.Email
				}
			}
		}
	}
	return nil
}

func (u User) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Extra)+len(userFieldNames)+1)
	for k, v := range u.Extra {
		out[k] = v
	}
	if u.ID != "" {
		out["id"] = u.ID
	}
	for _, name := range userFieldNames {
		if v := *u.field(name); v != "" {
			out[name] = v
		}
	}
	return json.Marshal(out)
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Extra = maps.Clone(u.Extra)
	return &c
}

// DisplayName returns the full name, falling back to the username or email.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// AuthResponse is returned by the login and registration endpoints.
type AuthResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user"`
}

func (r AuthResponse) validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Access, validation.Required),
		validation.Field(&r.Refresh, validation.Required),
		validation.Field(&r.User, validation.NotNil),
	)
}

// RefreshResponse is returned by the token refresh endpoint. Refresh is set
// when the backend rotates refresh tokens.
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

func (r RefreshResponse) validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Access, validation.Required),
	)
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the credentials before they are sent.
func (c Credentials) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, is.Email),
		validation.Field(&c.Password, validation.Required),
	)
	return asValidationFailure(err)
}

// Registration is the sign-up request body.
type Registration struct {
	Email     string `json:"email"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
	UserType  string `json:"user_type"`
}

// ErrPasswordMismatch is reported when the confirmation differs from the password.
var ErrPasswordMismatch = errors.New("passwords do not match")

// Validate checks the registration before it is sent; a password mismatch
// fails here without a request.
func (r Registration) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password1, validation.Required),
		validation.Field(&r.Password2, validation.Required, validation.By(stringEquals(r.Password1))),
		validation.Field(&r.UserType, validation.Required),
	)
	return asValidationFailure(err)
}

func stringEquals(str string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != str {
			return ErrPasswordMismatch
		}
		return nil
	}
}

// ProfileUpdate is a partial profile for PATCH. Nil fields are left unchanged.
type ProfileUpdate struct {
	Username    *string `json:"username,omitempty"`
	Email       *string `json:"email,omitempty"`
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}

// ErrEmptyUpdate is reported for a ProfileUpdate that changes nothing.
var ErrEmptyUpdate = errors.New("no fields to update")

// Validate checks the update before it is sent.
func (p ProfileUpdate) Validate() error {
	if p.Username == nil && p.Email == nil && p.FirstName == nil && p.LastName == nil && p.PhoneNumber == nil {
		return fmt.Errorf("%w: %w", ErrValidationFailure, ErrEmptyUpdate)
	}
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Length(0, 150)),
		validation.Field(&p.Email, is.Email),
		validation.Field(&p.FirstName, validation.Length(0, 150)),
		validation.Field(&p.LastName, validation.Length(0, 150)),
		validation.Field(&p.PhoneNumber, validation.Match(phonePattern)),
	)
	return asValidationFailure(err)
}

// Relationships lists the accepted emergency contact relationships.
var Relationships = []string{"Parent/Guardian", "Sibling", "Friend", "Spouse", "Mentor", "Others"}

// DefaultRelationship is used when a new contact has none.
const DefaultRelationship = "Parent/Guardian"

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{5,19}$`)

// EmergencyContact is a person notified from the emergency screen.
type EmergencyContact struct {
	ID           ID     `json:"id,omitempty"`
	Name         string `json:"name"`
	PhoneNumber  string `json:"phone_number"`
	Email        string `json:"email"`
	Relationship string `json:"relationship,omitempty"`
}

// Validate requires name, phone number and email.
func (c EmergencyContact) Validate() error {
	relationships := make([]interface{}, len(Relationships))
	for i, r := range Relationships {
		relationships[i] = r
	}
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&c.PhoneNumber, validation.Required, validation.Match(phonePattern)),
		validation.Field(&c.Email, validation.Required, is.Email),
		validation.Field(&c.Relationship, validation.In(relationships...)),
	)
	return asValidationFailure(err)
}

// asValidationFailure marks err as a validation failure. Rule errors of
// individual fields stay reachable through errors.Is.
func asValidationFailure(err error) error {
	if err == nil {
		return nil
	}
	causes := []error{ErrValidationFailure, err}
	if fields, ok := err.(validation.Errors); ok {
		for _, fe := range fields {
			causes = append(causes, fe)
		}
	}
	return &validationFailure{msg: ErrValidationFailure.Error() + ": " + err.Error(), causes: causes}
}

type validationFailure struct {
	msg    string
	causes []error
}

func (v *validationFailure) Error() string   { return v.msg }
func (v *validationFailure) Unwrap() []error { return v.causes }
