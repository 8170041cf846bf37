package guard

import "errors"

// ErrUnknownScreen is returned for a screen missing from the catalogue.
var ErrUnknownScreen = errors.New("guard: unknown screen")

// Screen is a navigable destination.
type Screen struct {
	Name      string
	Protected bool
}

// Screen names of the app.
const (
	ScreenLogin       = "Login"
	ScreenSignUp      = "SignUp"
	ScreenHome        = "Home"
	ScreenAlerts      = "Alerts"
	ScreenReport      = "Report"
	ScreenFeed        = "Feed"
	ScreenRewards     = "Rewards"
	ScreenEmergency   = "Emergency"
	ScreenProfile     = "Profile"
	ScreenEditProfile = "EditProfile"
)

// DefaultScreens is the app's screen catalogue.
var DefaultScreens = []Screen{
	{Name: ScreenLogin},
	{Name: ScreenSignUp},
	{Name: ScreenHome, Protected: true},
	{Name: ScreenAlerts, Protected: true},
	{Name: ScreenReport, Protected: true},
	{Name: ScreenFeed, Protected: true},
	{Name: ScreenRewards, Protected: true},
	{Name: ScreenEmergency, Protected: true},
	{Name: ScreenProfile, Protected: true},
	{Name: ScreenEditProfile, Protected: true},
}
