package rest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/jonxycate/juegos-parejas-backend/internal/config"
	"github.com/jonxycate/juegos-parejas-backend/internal/entity"
	"github.com/jonxycate/juegos-parejas-backend/internal/pkg"
	"github.com/jonxycate/juegos-parejas-backend/internal/service"
)

const urlUserInfo = "https://www.googleapis.com/oauth2/v2/userinfo"

const sessionCookieName = "user_session"

type AuthHandler interface {
	Guest(ctx echo.Context) error
	GoogleLogin(ctx echo.Context) error
	GoogleCallback(ctx echo.Context) error
	UpdateProfile(ctx echo.Context) error
}

type authHandler struct {
	logger *slog.Logger

	oauthConfig *oauth2.Config
	identity    service.IdentityService
}

func NewAuth(logger *slog.Logger, conf *config.Config, identity service.IdentityService) AuthHandler {
	oauthConfig := &oauth2.Config{
		ClientID:     conf.GoogleOAuth.ClientID,
		ClientSecret: conf.GoogleOAuth.ClientSecret,

		RedirectURL: conf.GoogleOAuth.RedirectURL,

		Scopes:   conf.GoogleOAuth.Scopes,
		Endpoint: google.Endpoint,
	}

	return &authHandler{
		logger:      logger.With("component", "auth"),
		oauthConfig: oauthConfig,
		identity:    identity,
	}
}

// Guest issues the opaque session identity the websocket handshake reuses.
func (that *authHandler) Guest(ctx echo.Context) error {
	log := that.logger.With("method", "Guest")

	sessionID := ""
	if cookie, err := ctx.Cookie(sessionCookieName); err == nil {
		sessionID = cookie.Value
	}

	player, err := that.identity.EnsurePlayer(ctx.Request().Context(), sessionID)
	if err != nil {
		log.Error("failed to ensure player", "error", err)
		return ctx.String(http.StatusInternalServerError, "Internal Server Error")
	}

	ctx.SetCookie(&http.Cookie{
		Name:    sessionCookieName,
		Value:   player.ID,
		Expires: time.Now().Add(24 * time.Hour),
		Path:    "/",
	})

	return ctx.JSON(http.StatusOK, player)
}

func (that *authHandler) GoogleLogin(ctx echo.Context) error {
	log := that.logger.With("method", "GoogleLogin")

	userSession, err := session.Get("session", ctx)
	if err != nil {
		log.Error("failed to get session", "error", err)
		return ctx.String(http.StatusInternalServerError, "Internal Server Error")
	}

	stateToken := pkg.GenerateNewSessionID()
	userSession.Values["state"] = stateToken
	if err = userSession.Save(ctx.Request(), ctx.Response()); err != nil {
		log.Error("failed to save session", "error", err)
		return ctx.String(http.StatusInternalServerError, "Internal Server Error")
	}

	// generate authURL for authorization with session token.
	authURL := that.oauthConfig.AuthCodeURL(stateToken)
	return ctx.Redirect(http.StatusTemporaryRedirect, authURL)
}

func (that *authHandler) GoogleCallback(ctx echo.Context) error {
	log := that.logger.With("method", "GoogleCallback")

	// get state from session.
	userSession, err := session.Get("session", ctx)
	if err != nil {
		log.Error("failed to get session", "error", err)
		return ctx.String(http.StatusInternalServerError, "Internal Server Error")
	}

	storedState, ok := userSession.Values["state"].(string)
	if !ok || storedState == "" {
		log.Error("state not found in session")
		return ctx.String(http.StatusBadRequest, "Invalid session state")
	}

	if ctx.QueryParam("state") != storedState {
		log.Error("invalid OAuth state")
		return ctx.String(http.StatusBadRequest, "Invalid OAuth state")
	}

	// exchange code for token.
	token, err := that.oauthConfig.Exchange(ctx.Request().Context(), ctx.QueryParam("code"))
	if err != nil {
		log.Error("failed to exchange code for token", "error", err)
		return ctx.String(http.StatusInternalServerError, "Internal Server Error")
	}

	client := that.oauthConfig.Client(ctx.Request().Context(), token)
	userInfo, err := getUserInfo(client)
	if err != nil {
		log.Error("failed to get user info", "error", err)
		return ctx.String(http.StatusInternalServerError, "Internal Server Error")
	}

	playerID := that.sessionPlayerID(ctx)
	if playerID == "" {
		return ctx.String(http.StatusUnauthorized, "No session identity")
	}

	user, err := that.identity.AttachAccount(ctx.Request().Context(), playerID, userInfo.Email)
	if err != nil {
		log.Error("failed to attach account", "error", err)
		return ctx.String(http.StatusInternalServerError, "Internal Server Error")
	}

	return ctx.JSON(http.StatusOK, user)
}

func (that *authHandler) UpdateProfile(ctx echo.Context) error {
	log := that.logger.With("method", "UpdateProfile")

	playerID := that.sessionPlayerID(ctx)
	if playerID == "" {
		return ctx.String(http.StatusUnauthorized, "No session identity")
	}

	var body struct {
		DisplayName string `json:"display_name"`
		AvatarToken string `json:"avatar_token"`
	}
	if err := ctx.Bind(&body); err != nil {
		return ctx.String(http.StatusBadRequest, "Malformed body")
	}

	player, err := that.identity.UpdateProfile(ctx.Request().Context(), playerID, body.DisplayName, body.AvatarToken)
	if err != nil {
		log.Error("failed to update profile", "error", err)
		return ctx.String(http.StatusInternalServerError, "Internal Server Error")
	}

	return ctx.JSON(http.StatusOK, player)
}

func (that *authHandler) sessionPlayerID(ctx echo.Context) string {
	cookie, err := ctx.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func getUserInfo(client *http.Client) (*entity.User, error) {
	resp, err := client.Get(urlUserInfo)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get user info: status %d", resp.StatusCode)
	}

	var userInfo entity.User
	if err = json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, err
	}

	return &userInfo, nil
}
