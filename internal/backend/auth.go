package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"mydashboard/internal/jsonutil"
)

// User is an identity-provider account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the result of a successful login. AccessToken is attached as
// the bearer token of every authenticated call.
type Session struct {
	UserID      string
	Email       string
	AccessToken string
	ExpiresAt   time.Time
}

// Expired reports whether the session is past its expiry at now. Sessions
// without a known expiry never expire locally.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SignUpResult is the identity provider's answer to signup. Session is nil
// while the email address awaits confirmation.
type SignUpResult struct {
	User    User
	Session *Session
}

// tokenResponse covers both GoTrue shapes: a session wrapping a user, and a
// bare user (signup with confirmation pending).
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	ExpiresAt   int64  `json:"expires_at"`
	User        *User  `json:"user"`
	ID          string `json:"id"`
	Email       string `json:"email"`
}

func (t tokenResponse) user() User {
	if t.User != nil {
		return *t.User
	}
	return User{ID: t.ID, Email: t.Email}
}

func (c *Client) session(t tokenResponse) *Session {
	if t.AccessToken == "" {
		return nil
	}
	u := t.user()
	s := &Session{UserID: u.ID, Email: u.Email, AccessToken: t.AccessToken}
	switch {
	case t.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		s.ExpiresAt = c.now().Add(time.Duration(t.ExpiresIn) * time.Second)
	default:
		if exp, ok := TokenExpiry(t.AccessToken); ok {
			s.ExpiresAt = exp
		}
	}
	return s
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authCall posts credentials to an identity endpoint and decodes the reply.
func (c *Client) authCall(ctx context.Context, name, path string, query map[string]string, creds credentials) (tokenResponse, error) {
	ctx, span := c.tracer.Start(ctx, "backend."+name)
	defer span.End()

	var out tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetHeader("Content-Type", "application/json").
		SetBody(creds).
		Post(authPath + path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return out, &TransportError{Op: name, Err: err}
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))
	if resp.StatusCode() != http.StatusOK {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode()))
		aerr := newAuthError(resp.StatusCode(), resp.Body())
		c.log.Info("identity provider rejected request", "op", name, "status", aerr.Status, "code", aerr.Code)
		return out, aerr
	}
	if err := jsonutil.UnmarshalWithContext(resp.Body(), &out, "decode "+name+" response"); err != nil {
		return out, err
	}
	return out, nil
}

// SignUp registers a new account. Most projects require email confirmation,
// in which case the result carries no session.
func (c *Client) SignUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	t, err := c.authCall(ctx, "signup", "/signup", nil, credentials{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	u := t.user()
	if u.ID == "" {
		return nil, &AuthError{Status: http.StatusOK, Message: "signup returned no user"}
	}
	return &SignUpResult{User: u, Session: c.session(t)}, nil
}

// SignIn exchanges email and password for a session. A rejection, or a
// reply without a session, is an *AuthError; network trouble is a
// *TransportError.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	t, err := c.authCall(ctx, "signin", "/token", map[string]string{"grant_type": "password"},
		credentials{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	s := c.session(t)
	if s == nil || s.UserID == "" {
		return nil, &AuthError{Status: http.StatusOK, Message: "login returned no session"}
	}
	c.log.Info("signed in", "user_id", s.UserID)
	return s, nil
}

// SignOut revokes the token server side. Callers discard the local session
// whatever the outcome.
func (c *Client) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return ErrMissingToken
	}
	ctx, span := c.tracer.Start(ctx, "backend.signout", oteltrace.WithSpanKind(oteltrace.SpanKindClient))
	defer span.End()

	resp, err := c.http.R().SetContext(ctx).SetAuthToken(token).Post(authPath + "/logout")
	if err != nil {
		span.RecordError(err)
		return &TransportError{Op: "signout", Err: err}
	}
	if s := resp.StatusCode(); s != http.StatusNoContent && s != http.StatusOK {
		span.SetStatus(codes.Error, http.StatusText(s))
		return newRequestError("signout", "", s, resp.Body(), "")
	}
	return nil
}

// String avoids leaking the token into logs.
func (s *Session) String() string {
	return fmt.Sprintf("Session{user=%s email=%s expires=%s}", s.UserID, s.Email, s.ExpiresAt.Format(time.RFC3339))
}
