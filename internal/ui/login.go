package ui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/go-playground/validator/v10"
)

const (
	actionLogin  = "login"
	actionSignUp = "signup"
)

var validate = validator.New()

func validEmail(s string) error {
	if err := validate.Var(strings.TrimSpace(s), "required,email"); err != nil {
		return errors.New("enter a valid email address")
	}
	return nil
}

func validPassword(s string) error {
	if s == "" {
		return errors.New("password is required")
	}
	return nil
}

// credentials holds the form's bound values. It lives on the heap so the
// huh fields keep valid pointers when the view is copied.
type credentials struct {
	email    string
	password string
	action   string
}

// LoginView is the anonymous screen: email, password and a choice between
// logging in and signing up.
type LoginView struct {
	form      *huh.Form
	creds     *credentials
	width     int
	submitted bool
}

// Ensure LoginView implements View.
var _ View = (*LoginView)(nil)

// NewLoginView creates an empty login form.
func NewLoginView() *LoginView {
	v := &LoginView{}
	v.reset("")
	return v
}

// reset rebuilds the form, keeping email so a failed login is quick to retry.
func (v *LoginView) reset(email string) {
	v.creds = &credentials{email: email, action: actionLogin}
	v.submitted = false
	v.form = huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Email").
			Value(&v.creds.email).
			Validate(validEmail),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&v.creds.password).
			Validate(validPassword),
		huh.NewSelect[string]().
			Title("Action").
			Options(
				huh.NewOption("Log in", actionLogin),
				huh.NewOption("Sign up", actionSignUp),
			).
			Value(&v.creds.action),
	)).WithShowHelp(true)
	if v.width > 0 {
		v.form = v.form.WithWidth(v.width)
	}
}

// Reset clears the password and starts the form over.
func (v *LoginView) Reset() tea.Cmd {
	v.reset(v.creds.email)
	return v.form.Init()
}

// Init implements View.
func (v *LoginView) Init() tea.Cmd {
	return v.form.Init()
}

// Update implements View.
func (v *LoginView) Update(msg tea.Msg) (View, tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		v.width = min(ws.Width-4, 60)
		v.form = v.form.WithWidth(v.width)
	}
	model, cmd := v.form.Update(msg)
	if f, ok := model.(*huh.Form); ok {
		v.form = f
	}
	switch v.form.State {
	case huh.StateCompleted:
		if v.submitted {
			return v, nil
		}
		v.submitted = true
		submit := LoginSubmitMsg{
			Email:    strings.TrimSpace(v.creds.email),
			Password: v.creds.password,
			SignUp:   v.creds.action == actionSignUp,
		}
		return v, func() tea.Msg { return submit }
	case huh.StateAborted:
		return v, v.Reset()
	}
	return v, cmd
}

// View implements View.
func (v *LoginView) View() string {
	return Styles.Title.Render("Sign in") + "\n\n" + v.form.View()
}
