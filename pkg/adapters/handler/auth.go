package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wadjakorntonsri/go-shortlink/pkg/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// AuthHandler runs the Google OAuth login flow for the admin surface and
// issues the JWT session cookie that SessionAuth checks.
type AuthHandler struct {
	oauthConfig   *oauth2.Config
	jwtSecret     []byte
	frontendURL   string
	allowedEmails []string
	isProduction  bool
}

type googleProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
			},
			Endpoint: google.Endpoint,
		},
		jwtSecret:     []byte(cfg.JWTSecret),
		frontendURL:   cfg.FrontendURL,
		allowedEmails: cfg.AllowedEmails,
		isProduction:  cfg.AppEnv == "production",
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := h.setStateCookie(w)
	http.Redirect(w, r, h.oauthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauthstate")
	if err != nil || r.FormValue("state") != stateCookie.Value {
		log.Printf("oauth callback: state mismatch: %v", err)
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	token, err := h.oauthConfig.Exchange(context.Background(), r.FormValue("code"))
	if err != nil {
		log.Printf("oauth callback: code exchange failed: %v", err)
		writeError(w, http.StatusInternalServerError, "code exchange failed")
		return
	}

	resp, err := http.Get("https://www.googleapis.com/oauth2/v2/userinfo?access_token=" + token.AccessToken)
	if err != nil {
		log.Printf("oauth callback: userinfo fetch failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed getting user info")
		return
	}
	defer resp.Body.Close()

	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		log.Printf("oauth callback: userinfo decode failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed decoding user info")
		return
	}

	if !h.emailAllowed(profile.Email) {
		log.Printf("oauth callback: email %s not in allowlist", profile.Email)
		writeError(w, http.StatusForbidden, "access denied")
		return
	}

	expirationTime := time.Now().Add(24 * time.Hour)
	claims := &jwt.RegisteredClaims{
		Subject:   profile.Email,
		ExpiresAt: jwt.NewNumericDate(expirationTime),
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
	if err != nil {
		log.Printf("oauth callback: signing JWT failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    tokenString,
		Expires:  expirationTime,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})

	log.Printf("login successful for %s", profile.Email)
	http.Redirect(w, r, h.frontendURL, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

func (h *AuthHandler) emailAllowed(email string) bool {
	if len(h.allowedEmails) == 0 {
		return true
	}
	for _, allowed := range h.allowedEmails {
		if allowed == email {
			return true
		}
	}
	return false
}

func (h *AuthHandler) setStateCookie(w http.ResponseWriter) string {
	b := make([]byte, 16)
	rand.Read(b)
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     "oauthstate",
		Value:    state,
		Expires:  time.Now().Add(20 * time.Minute),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return state
}
