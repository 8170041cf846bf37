package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jonwraymond/guardian/apiclient"
	"github.com/jonwraymond/guardian/guard"
	"github.com/jonwraymond/guardian/health"
	"github.com/jonwraymond/guardian/session"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"login":          cmdLogin,
	"signup":         cmdSignUp,
	"logout":         cmdLogout,
	"whoami":         cmdWhoami,
	"update-profile": cmdUpdateProfile,
	"contacts":       cmdContacts,
	"open":           cmdOpen,
	"session":        cmdSession,
	"status":         cmdStatus,
}

// EnvPassword supplies the password when -password is not given.
const EnvPassword = "GUARDIAN_PASSWORD"

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func password(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvPassword)
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "login")
	email := fs.String("email", "", "Account email")
	pw := fs.String("password", "", "Password (or "+EnvPassword+")")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.session.Login(ctx, *email, password(*pw)); err != nil {
		return alert("Login failed", err)
	}
	a.printf("Signed in as %s\n", a.session.User().DisplayName())
	return nil
}

func cmdSignUp(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "signup")
	email := fs.String("email", "", "Account email")
	pw := fs.String("password", "", "Password (or "+EnvPassword+")")
	confirm := fs.String("confirm", "", "Password confirmation (defaults to the password)")
	userType := fs.String("type", "individual", "Account type")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p := password(*pw)
	c := *confirm
	if c == "" {
		c = p
	}
	if err := a.session.SignUp(ctx, *email, p, c, *userType); err != nil {
		return alert("Sign up failed", err)
	}
	a.printf("Account created successfully!\n")
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	a.session.Logout(ctx)
	a.printf("Signed out\n")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, _ []string) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	u := a.session.User()
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", u.DisplayName())
	fmt.Fprintf(tw, "Username:\t%s\n", u.Username)
	fmt.Fprintf(tw, "Email:\t%s\n", u.Email)
	if u.PhoneNumber != "" {
		fmt.Fprintf(tw, "Phone:\t%s\n", u.PhoneNumber)
	}
	if u.UserType != "" {
		fmt.Fprintf(tw, "Type:\t%s\n", u.UserType)
	}
	return tw.Flush()
}

func cmdUpdateProfile(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "update-profile")
	username := fs.String("username", "", "New username")
	email := fs.String("email", "", "New email")
	first := fs.String("first-name", "", "New first name")
	last := fs.String("last-name", "", "New last name")
	phone := fs.String("phone", "", "New phone number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var update apiclient.ProfileUpdate
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "username":
			update.Username = username
		case "email":
			update.Email = email
		case "first-name":
			update.FirstName = first
		case "last-name":
			update.LastName = last
		case "phone":
			update.PhoneNumber = phone
		}
	})

	if err := a.requireSession(ctx); err != nil {
		return err
	}
	u, err := a.session.UpdateUser(ctx, update)
	if err != nil {
		return alert("Update failed", err)
	}
	a.printf("Profile updated for %s\n", u.DisplayName())
	return nil
}

func cmdContacts(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: guardian contacts <list|add|remove> [flags]")
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	switch args[0] {
	case "list":
		contacts, err := a.client.Contacts(ctx)
		if err != nil {
			return alert("Loading contacts failed", err)
		}
		if len(contacts) == 0 {
			a.printf("No emergency contacts.\n")
			return nil
		}
		tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tRELATIONSHIP\tPHONE\tEMAIL")
		for _, c := range contacts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Relationship, c.PhoneNumber, c.Email)
		}
		return tw.Flush()

	case "add":
		fs := newFlagSet(a, "contacts add")
		var c apiclient.EmergencyContact
		fs.StringVar(&c.Name, "name", "", "Contact name")
		fs.StringVar(&c.PhoneNumber, "phone", "", "Contact phone number")
		fs.StringVar(&c.Email, "email", "", "Contact email")
		fs.StringVar(&c.Relationship, "relationship", "", "One of: "+strings.Join(apiclient.Relationships, ", "))
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		created, err := a.client.CreateContact(ctx, c)
		if err != nil {
			return alert("Adding contact failed", err)
		}
		a.printf("Added %s (%s)\n", created.Name, created.ID)
		return nil

	case "remove":
		if len(args) != 2 {
			return errors.New("usage: guardian contacts remove <id>")
		}
		if err := a.client.DeleteContact(ctx, apiclient.ID(args[1])); err != nil {
			return alert("Removing contact failed", err)
		}
		a.printf("Removed contact %s\n", args[1])
		return nil

	default:
		return fmt.Errorf("unknown contacts command %q", args[0])
	}
}

// printNavigator writes navigation to the terminal.
type printNavigator struct{ a *app }

func (n printNavigator) Show(screen string)     { n.a.printf("Showing %s\n", screen) }
func (n printNavigator) Redirect(screen string) { n.a.printf("Redirected to %s\n", screen) }
func (n printNavigator) Clear()                 {}

func cmdOpen(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: guardian open <screen>")
	}
	g, err := guard.New(a.session, printNavigator{a}, guard.Config{})
	if err != nil {
		return err
	}
	defer g.Close()

	if _, err := g.Navigate(args[0]); err != nil {
		return err
	}
	if a.session.Start(ctx) != session.StateAuthenticated && g.Current() != args[0] {
		return errNotSignedIn
	}
	return nil
}

func cmdSession(ctx context.Context, a *app, _ []string) error {
	state := a.session.Start(ctx)
	snap := a.session.Snapshot()

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "State:\t%s\n", state)
	if snap.Username != "" {
		fmt.Fprintf(tw, "Username:\t%s\n", snap.Username)
	}
	exp, ok, err := a.session.TokenExpiry(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(tw, "Access token:\tunreadable (%v)\n", err)
	case ok:
		fmt.Fprintf(tw, "Access token expires:\t%s (%s)\n", exp.Local().Format(time.RFC1123), time.Until(exp).Round(time.Second))
	}
	fmt.Fprintf(tw, "Store:\t%s\n", a.cfg.Store.Driver)
	return tw.Flush()
}

func cmdStatus(ctx context.Context, a *app, _ []string) error {
	agg := health.NewAggregator(health.AggregatorConfig{Timeout: a.cfg.Timeout})
	agg.Register(health.NewStoreChecker(a.store))
	agg.Register(health.NewBackendChecker(nil, a.client.BaseURL()+"/"))

	report := agg.Run(ctx)
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	for _, r := range report.Results {
		line := r.Message
		if r.Error != nil {
			line += ": " + r.Error.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, r.Status, r.Duration.Round(time.Millisecond), line)
	}
	fmt.Fprintf(tw, "overall\t%s\t\t\n", report.Status)
	if err := tw.Flush(); err != nil {
		return err
	}
	if report.Status == health.StatusUnhealthy {
		return errors.New("unhealthy")
	}
	return nil
}

// alert formats err the way the app shows it to the user.
func alert(title string, err error) error {
	switch {
	case errors.Is(err, apiclient.ErrPasswordMismatch):
		return fmt.Errorf("%s: Passwords do not match", title)
	case errors.Is(err, apiclient.ErrValidationFailure):
		return fmt.Errorf("%s: %w", title, err)
	case errors.Is(err, apiclient.ErrNetworkFailure) && !errors.Is(err, apiclient.ErrAuthFailure):
		return fmt.Errorf("%s: the server could not be reached", title)
	}
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", title, apiErr.Message())
	}
	return fmt.Errorf("%s: %w", title, err)
}
