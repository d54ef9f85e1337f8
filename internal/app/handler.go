package app

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/castellan/castellan/internal/sec"
	"github.com/castellan/castellan/internal/storage"
	"github.com/castellan/castellan/internal/storage/db"
)

// defaultAuthority is granted to self-registered users.
const defaultAuthority = "USER"

type handler struct {
	login    *sec.LoginService
	users    storage.Users
	hashCost int
	logger   *slog.Logger
}

func (h handler) register(e *echo.Echo) {
	e.POST("/token", h.token)
	e.POST("/register", h.signup)

	e.GET("/", h.index)
	e.GET("/contact", h.contact)

	e.GET("/hello", h.hello)
	e.GET("/me", h.me)
	e.GET("/balance", h.balance)
	e.GET("/transfer", h.transfer)

	e.GET("/admin", h.admin)
	e.GET("/user", h.user)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	TokenType   string `json:"token_type"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"` // seconds until expiry
}

type messageResponse struct {
	Message string `json:"message"`
}

// token exchanges a username/password pair for a bearer token. Credentials
// arrive as a JSON body or, failing that, as a Basic Auth header. Only the
// error category reaches the client; the status codes are 401 for bad
// credentials, 403 for a disabled account and 503 for a store failure.
func (h handler) token(c echo.Context) error {
	req := c.Request()
	creds, err := bindCredentials(c)
	if err != nil {
		return err
	}

	token, err := h.login.Login(req.Context(), creds.Username, creds.Password)
	switch {
	case errors.Is(err, sec.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, sec.ErrInvalidCredentials.Error())
	case errors.Is(err, sec.ErrAccountDisabled):
		return echo.NewHTTPError(http.StatusForbidden, sec.ErrAccountDisabled.Error())
	case errors.Is(err, sec.ErrStoreUnavailable):
		h.logger.LogAttrs(req.Context(), slog.LevelError,
			"credential store lookup failed",
			slog.Any("error", err),
		)
		return echo.NewHTTPError(http.StatusServiceUnavailable, sec.ErrStoreUnavailable.Error())
	case err != nil:
		return err
	}

	return c.JSON(http.StatusOK, tokenResponse{
		TokenType:   "Bearer",
		AccessToken: token,
		ExpiresIn:   int64(h.login.Codec().TTL().Seconds()),
	})
}

// signup creates an enabled account with the default authority. The username
// rules and the uniqueness check live in the storage layer.
func (h handler) signup(c echo.Context) error {
	req := c.Request()
	creds, err := bindCredentials(c)
	if err != nil {
		return err
	}

	// Registration never updates an existing account, unlike the CLI upsert.
	switch _, err := h.users.GetUserByName(req.Context(), creds.Username); {
	case err == nil:
		return echo.NewHTTPError(http.StatusConflict, storage.ErrAlreadyExists.Error())
	case !errors.Is(err, storage.ErrNotFound):
		h.logger.LogAttrs(req.Context(), slog.LevelError,
			"registration lookup failed",
			slog.Any("error", err),
		)
		return echo.NewHTTPError(http.StatusServiceUnavailable, sec.ErrStoreUnavailable.Error())
	}

	hash, err := sec.HashPassword(creds.Password, h.hashCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid password")
	}

	user := db.User{
		Name:         creds.Username,
		PasswordHash: hash,
		Enabled:      true,
		Authorities:  []string{defaultAuthority},
	}
	switch err := h.users.UpsertUser(req.Context(), user); {
	case errors.Is(err, storage.ErrAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, storage.ErrAlreadyExists.Error())
	case errors.Is(err, storage.ErrInvalidUsername):
		return echo.NewHTTPError(http.StatusBadRequest, storage.ErrInvalidUsername.Error())
	case err != nil:
		h.logger.LogAttrs(req.Context(), slog.LevelError,
			"registration write failed",
			slog.Any("error", err),
		)
		return echo.NewHTTPError(http.StatusServiceUnavailable, sec.ErrStoreUnavailable.Error())
	}

	h.logger.LogAttrs(req.Context(), slog.LevelInfo,
		"user registered",
		slog.String("name", creds.Username),
	)
	return c.JSON(http.StatusCreated, messageResponse{Message: "registered " + user.Path()})
}

func bindCredentials(c echo.Context) (credentialsRequest, error) {
	var creds credentialsRequest
	if err := c.Bind(&creds); err != nil || creds.Username == "" {
		// Fall back to Basic Auth for clients that prefer header credentials.
		if name, password, ok := c.Request().BasicAuth(); ok {
			return credentialsRequest{Username: name, Password: password}, nil
		}
		return creds, echo.NewHTTPError(http.StatusBadRequest, "missing credentials")
	}
	return creds, nil
}

func (h handler) index(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "castellan is up"})
}

func (h handler) contact(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "contact us: support@castellan.example"})
}

func (h handler) hello(c echo.Context) error {
	id, _ := sec.AuthenticatedIdentity(c.Request().Context())
	return c.JSON(http.StatusOK, messageResponse{Message: "hello, " + id.Subject})
}

// me returns the request-scoped identity: the token subject and its roles.
func (h handler) me(c echo.Context) error {
	id, _ := sec.AuthenticatedIdentity(c.Request().Context())
	return c.JSON(http.StatusOK, echo.Map{
		"subject": id.Subject,
		"roles":   id.Roles,
	})
}

func (h handler) balance(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "your balance: 7898.90 INR"})
}

func (h handler) transfer(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "your transfer completed"})
}

func (h handler) admin(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "welcome, administrator"})
}

func (h handler) user(c echo.Context) error {
	id, _ := sec.AuthenticatedIdentity(c.Request().Context())
	return c.JSON(http.StatusOK, messageResponse{Message: "welcome, " + id.Subject})
}
