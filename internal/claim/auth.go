package claim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"
)

const sessionName = "eaf-session"

const userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Auth gates the form behind a login step. Two deployment variants exist:
// static credentials, and Google sign-in restricted to an email allow-list.
// Login state and flashed messages live in a cookie session; the only
// process-wide state is this read-only configuration.
type Auth struct {
	store         *sessions.CookieStore
	username      string
	password      string
	oauth         *oauth2.Config
	allowedEmails map[string]bool
}

// NewAuth builds the auth gate. oauthCfg may be nil when the deployment uses
// static credentials only.
func NewAuth(secret, username, password string, oauthCfg *oauth2.Config, allowedEmails []string) *Auth {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options.HttpOnly = true
	store.Options.SameSite = http.SameSiteLaxMode

	allowed := make(map[string]bool, len(allowedEmails))
	for _, e := range allowedEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			allowed[e] = true
		}
	}

	return &Auth{
		store:         store,
		username:      username,
		password:      password,
		oauth:         oauthCfg,
		allowedEmails: allowed,
	}
}

// GoogleEnabled reports whether the identity-provider variant is configured.
func (a *Auth) GoogleEnabled() bool {
	return a.oauth != nil && a.oauth.ClientID != ""
}

// CheckCredentials validates a static-credential login attempt.
func (a *Auth) CheckCredentials(username, password string) error {
	if username == a.username && password == a.password && username != "" {
		return nil
	}
	return &AuthError{Reason: "invalid username or password"}
}

// session returns the request's session, discarding decode errors so a stale
// or tampered cookie behaves like a fresh session.
func (a *Auth) session(r *http.Request) *sessions.Session {
	sess, _ := a.store.Get(r, sessionName)
	return sess
}

// SignIn records the logged-in user on the session.
func (a *Auth) SignIn(w http.ResponseWriter, r *http.Request, user string) error {
	sess := a.session(r)
	sess.Values["user"] = user
	return sess.Save(r, w)
}

// SignOut clears the session.
func (a *Auth) SignOut(w http.ResponseWriter, r *http.Request) {
	sess := a.session(r)
	sess.Options.MaxAge = -1
	sess.Save(r, w)
}

// CurrentUser returns the logged-in user, if any.
func (a *Auth) CurrentUser(r *http.Request) (string, bool) {
	user, ok := a.session(r).Values["user"].(string)
	return user, ok && user != ""
}

// Flash queues a message for the next rendered page.
func (a *Auth) Flash(w http.ResponseWriter, r *http.Request, message string) {
	sess := a.session(r)
	sess.AddFlash(message)
	sess.Save(r, w)
}

// Flashes drains the queued messages.
func (a *Auth) Flashes(w http.ResponseWriter, r *http.Request) []string {
	sess := a.session(r)
	raw := sess.Flashes()
	if len(raw) > 0 {
		sess.Save(r, w)
	}
	messages := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			messages = append(messages, s)
		}
	}
	return messages
}

// AuthURL returns the identity provider's consent URL for the given state.
func (a *Auth) AuthURL(state string) string {
	return a.oauth.AuthCodeURL(state)
}

// SetOAuthState stores the OAuth state nonce on the session.
func (a *Auth) SetOAuthState(w http.ResponseWriter, r *http.Request, state string) error {
	sess := a.session(r)
	sess.Values["oauth_state"] = state
	return sess.Save(r, w)
}

// TakeOAuthState removes and returns the stored state nonce.
func (a *Auth) TakeOAuthState(w http.ResponseWriter, r *http.Request) string {
	sess := a.session(r)
	state, _ := sess.Values["oauth_state"].(string)
	delete(sess.Values, "oauth_state")
	sess.Save(r, w)
	return state
}

// ExchangeCode turns an authorization code into the signed-in email address,
// enforcing the allow-list.
func (a *Auth) ExchangeCode(ctx context.Context, code string) (string, error) {
	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return "", &AuthError{Reason: "sign-in failed, please try again"}
	}

	resp, err := a.oauth.Client(ctx, token).Get(userInfoURL)
	if err != nil {
		return "", &AuthError{Reason: "could not fetch account details"}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &AuthError{Reason: fmt.Sprintf("could not fetch account details (status %d)", resp.StatusCode)}
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", &AuthError{Reason: "could not fetch account details"}
	}

	email := strings.ToLower(strings.TrimSpace(info.Email))
	if !a.allowedEmails[email] {
		return "", &AuthError{Reason: "this account is not authorized to use the form"}
	}
	return email, nil
}
