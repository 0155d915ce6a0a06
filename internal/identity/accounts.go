package identity

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "sessionkit/cli/internal/errors"
	"sessionkit/cli/internal/session"
)

type passwordResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type lookupResponse struct {
	Users []struct {
		LocalID          string `json:"localId"`
		Email            string `json:"email"`
		EmailVerified    bool   `json:"emailVerified"`
		DisplayName      string `json:"displayName"`
		PhotoURL         string `json:"photoUrl"`
		ProviderUserInfo []struct {
			ProviderID string `json:"providerId"`
		} `json:"providerUserInfo"`
	} `json:"users"`
}

type idpResponse struct {
	LocalID       string `json:"localId"`
	ProviderID    string `json:"providerId"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	DisplayName   string `json:"displayName"`
	PhotoURL      string `json:"photoUrl"`
	IDToken       string `json:"idToken"`
	RefreshToken  string `json:"refreshToken"`
	ExpiresIn     string `json:"expiresIn"`
	ErrorMessage  string `json:"errorMessage"`
}

type tokenResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

// SignInWithEmailAndPassword signs in, looks up the account flags and
// notifies listeners before returning.
func (c *Client) SignInWithEmailAndPassword(ctx context.Context, email, password string) (session.AuthRecord, error) {
	var pr passwordResponse
	err := c.post(ctx, c.identityURL, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &pr)
	if err != nil {
		return session.AuthRecord{}, apperrors.Wrap(apperrors.AuthFailed, "sign in failed", err)
	}

	rec := session.AuthRecord{
		UID:          pr.LocalID,
		Email:        pr.Email,
		DisplayName:  pr.DisplayName,
		ProviderID:   "password",
		IDToken:      pr.IDToken,
		RefreshToken: pr.RefreshToken,
	}
	if err := c.lookupInto(ctx, &rec); err != nil {
		return session.AuthRecord{}, apperrors.Wrap(apperrors.AuthFailed, "account lookup failed", err)
	}
	return c.signedIn(rec, pr.ExpiresIn), nil
}

// lookupInto fills the account flags of rec from accounts:lookup.
func (c *Client) lookupInto(ctx context.Context, rec *session.AuthRecord) error {
	var lr lookupResponse
	if err := c.post(ctx, c.identityURL, "accounts:lookup", map[string]any{"idToken": rec.IDToken}, &lr); err != nil {
		return err
	}
	if len(lr.Users) == 0 {
		return newAPIError(http.StatusBadRequest, "USER_NOT_FOUND")
	}
	u := lr.Users[0]
	rec.UID = u.LocalID
	rec.Email = u.Email
	rec.EmailVerified = u.EmailVerified
	if u.DisplayName != "" {
		rec.DisplayName = u.DisplayName
	}
	rec.PhotoURL = u.PhotoURL
	rec.IsAnonymous = u.Email == "" && len(u.ProviderUserInfo) == 0
	return nil
}

// signInWithIdp completes a social sign-in with the provider's token.
func (c *Client) signInWithIdp(ctx context.Context, requestURI, postBody string) (session.AuthRecord, error) {
	var ir idpResponse
	err := c.post(ctx, c.identityURL, "accounts:signInWithIdp", map[string]any{
		"requestUri":          requestURI,
		"postBody":            postBody,
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}, &ir)
	if err != nil {
		return session.AuthRecord{}, err
	}
	if ir.ErrorMessage != "" {
		return session.AuthRecord{}, newAPIError(http.StatusOK, ir.ErrorMessage)
	}

	rec := session.AuthRecord{
		UID:           ir.LocalID,
		Email:         ir.Email,
		EmailVerified: ir.EmailVerified,
		DisplayName:   ir.DisplayName,
		PhotoURL:      ir.PhotoURL,
		ProviderID:    ir.ProviderID,
		IDToken:       ir.IDToken,
		RefreshToken:  ir.RefreshToken,
	}
	if err := c.lookupInto(ctx, &rec); err != nil {
		return session.AuthRecord{}, err
	}
	return c.signedIn(rec, ir.ExpiresIn), nil
}

// refresh exchanges a refresh token for a new ID token.
func (c *Client) refresh(ctx context.Context, refreshToken string) (tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	u := c.tokenURL + "/token?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return tokenResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.logger.Debug("identity request", c.logger.Args("endpoint", "token"))

	var tr tokenResponse
	if err := c.do(req, &tr); err != nil {
		return tokenResponse{}, err
	}
	return tr, nil
}

// expiry converts an expiresIn value in seconds to an absolute time.
func (c *Client) expiry(expiresIn string) time.Time {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		secs = 3600
	}
	return c.now().Add(time.Duration(secs) * time.Second)
}
