package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/ecsnova-registration-api/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const (
	DiscordAuthorizeEndpoint = "https://discord.com/api/oauth2/authorize"
	DiscordTokenEndpoint     = "https://discord.com/api/oauth2/token"
	DiscordUserAPI           = "https://discord.com/api/users/@me"
	DiscordUserGuildsAPI     = "https://discord.com/api/users/@me/guilds"
)

const (
	CookieName       = "auth_token"
	stateCookieName  = "oauth_state"
	TokenDuration    = 24 * time.Hour
	OrganizerSubject = "organizer"
)

type AuthHandler struct {
	oauthConfig  *oauth2.Config
	cfg          *config.Config
	userAPI      string
	userGuildAPI string
	logger       *slog.Logger
}

func NewAuthHandler(cfg *config.Config, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURL,
			Scopes:       []string{"identify", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  DiscordAuthorizeEndpoint,
				TokenURL: DiscordTokenEndpoint,
			},
		},
		cfg:          cfg,
		userAPI:      DiscordUserAPI,
		userGuildAPI: DiscordUserGuildsAPI,
		logger:       logger,
	}
}

func (h *AuthHandler) GenerateToken(subject string) (string, time.Time, error) {
	return h.generateToken(subject, time.Now().Add(TokenDuration))
}

func (h *AuthHandler) generateToken(subject string, expiresAt time.Time) (string, time.Time, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken verifies signature and expiry of a session token.
func (h *AuthHandler) ParseToken(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(h.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

func (h *AuthHandler) sessionCookie(token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  expires,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		Secure:   strings.HasPrefix(h.cfg.PublicBaseURL, "https://"),
	}
}

type LoginInput struct {
	Body struct {
		Password string `json:"password" doc:"Organizer dashboard password"`
	}
}

type LoginOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
}

func (h *AuthHandler) HandleLogin(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	if subtle.ConstantTimeCompare([]byte(input.Body.Password), []byte(h.cfg.DashboardPassword)) != 1 {
		h.logger.WarnContext(ctx, "dashboard login rejected")
		return nil, huma.Error401Unauthorized("Incorrect password")
	}

	token, expires, err := h.GenerateToken(OrganizerSubject)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to generate token")
	}

	res := &LoginOutput{SetCookie: *h.sessionCookie(token, expires)}
	res.Body.Token = token
	res.Body.ExpiresAt = expires
	return res, nil
}

type LogoutOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
}

func (h *AuthHandler) HandleLogout(ctx context.Context, input *struct{}) (*LogoutOutput, error) {
	cookie := h.sessionCookie("", time.Unix(0, 0))
	cookie.MaxAge = -1
	return &LogoutOutput{SetCookie: *cookie}, nil
}

type MeOutput struct {
	Body struct {
		Subject   string    `json:"subject"`
		ExpiresAt time.Time `json:"expires_at"`
	}
}

func (h *AuthHandler) HandleMe(ctx context.Context, input *struct{}) (*MeOutput, error) {
	session, ok := SessionFromContext(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	res := &MeOutput{}
	res.Body.Subject = session.Subject
	res.Body.ExpiresAt = session.ExpiresAt
	return res, nil
}

func (h *AuthHandler) HandleDiscordLogin(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		http.Error(w, "Failed to start login", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Path:     "/auth/discord",
		SameSite: http.SameSiteLaxMode,
	})
	url := h.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) HandleDiscordCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Code not found", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	token, err := h.oauthConfig.Exchange(ctx, code)
	if err != nil {
		h.logger.ErrorContext(ctx, "discord token exchange failed", "error", err)
		http.Error(w, "Failed to exchange token", http.StatusInternalServerError)
		return
	}

	client := h.oauthConfig.Client(ctx, token)

	var guilds []struct {
		ID string `json:"id"`
	}
	if err := getJSON(client, h.userGuildAPI, &guilds); err != nil {
		h.logger.ErrorContext(ctx, "failed to get discord guilds", "error", err)
		http.Error(w, "Failed to get user guilds", http.StatusInternalServerError)
		return
	}

	isMember := false
	for _, g := range guilds {
		if g.ID == h.cfg.DiscordGuildID {
			isMember = true
			break
		}
	}
	if !isMember {
		http.Error(w, "Access denied: You are not a member of the required guild.", http.StatusForbidden)
		return
	}

	var discordUser struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := getJSON(client, h.userAPI, &discordUser); err != nil || discordUser.ID == "" {
		h.logger.ErrorContext(ctx, "failed to get discord user", "error", err)
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}

	jwtToken, expires, err := h.GenerateToken("discord:" + discordUser.ID)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "organizer signed in with discord", "discord_id", discordUser.ID, "username", discordUser.Username)

	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/auth/discord", MaxAge: -1})
	http.SetCookie(w, h.sessionCookie(jwtToken, expires))
	http.Redirect(w, r, h.cfg.FrontendURL, http.StatusTemporaryRedirect)
}

func getJSON(client *http.Client, url string, v any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
