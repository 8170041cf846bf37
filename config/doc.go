// Package config loads guardian settings from GUARDIAN_* environment
// variables.
//
// Values that name other variables, such as GUARDIAN_BASE_URL set to
// "${API_HOST}/api", are expanded strictly: a referenced variable that is not
// set is an error rather than an empty string. "$$" yields a literal "$".
package config
