package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"authdemo/internal/middleware"
	"authdemo/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuthHandler interface {
	Home(c *gin.Context)
	Profile(c *gin.Context)
	SignInForm(c *gin.Context)
	SignIn(c *gin.Context)
	SignOutForm(c *gin.Context)
	SignOut(c *gin.Context)
	Session(c *gin.Context)
	UpdateSession(c *gin.Context)
	Register(c *gin.Context)
}

type authHandler struct {
	authService service.AuthService
	cookie      middleware.SessionConfig
	baseURL     string
	log         *logrus.Logger
}

func NewAuthHandler(authService service.AuthService, cookie middleware.SessionConfig, baseURL string, log *logrus.Logger) AuthHandler {
	return &authHandler{
		authService: authService,
		cookie:      cookie,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		log:         log,
	}
}

// Home renders the landing page with the current session state.
func (h *authHandler) Home(c *gin.Context) {
	claims, _ := middleware.CurrentClaims(c)
	c.HTML(http.StatusOK, "home.html", gin.H{"Claims": claims})
}

// Profile renders the protected profile page.
func (h *authHandler) Profile(c *gin.Context) {
	claims, _ := middleware.CurrentClaims(c)
	c.HTML(http.StatusOK, "profile.html", gin.H{"Claims": claims})
}

// SignInForm renders the credentials form.
func (h *authHandler) SignInForm(c *gin.Context) {
	claims, _ := middleware.CurrentClaims(c)
	c.HTML(http.StatusOK, "signin.html", gin.H{
		"Claims":      claims,
		"CallbackURL": c.Query("callbackUrl"),
	})
}

// SignIn handles the credentials form post. Any failure re-renders the form
// with the same generic message, no matter whether the account was unknown,
// the password wrong, or the account unusable.
func (h *authHandler) SignIn(c *gin.Context) {
	account := c.PostForm("account")
	password := c.PostForm("password")
	callbackURL := c.PostForm("callbackUrl")

	claims, err := h.authService.Authorize(c.Request.Context(), account, password)
	if err != nil {
		h.log.Infof("Sign-in rejected for %q", account)
		c.HTML(http.StatusUnauthorized, "signin.html", gin.H{
			"Error":       "Sign in failed",
			"CallbackURL": callbackURL,
		})
		return
	}

	tokenString, _, err := h.authService.IssueToken(claims)
	if err != nil {
		h.log.Errorf("Failed to issue session token: %v", err)
		c.HTML(http.StatusInternalServerError, "signin.html", gin.H{
			"Error":       "Sign in failed",
			"CallbackURL": callbackURL,
		})
		return
	}

	middleware.SetSessionCookie(c, h.cookie, tokenString)
	c.Redirect(http.StatusSeeOther, h.redirectTarget(callbackURL))
}

// SignOutForm renders the sign-out confirmation page.
func (h *authHandler) SignOutForm(c *gin.Context) {
	claims, _ := middleware.CurrentClaims(c)
	c.HTML(http.StatusOK, "signout.html", gin.H{"Claims": claims})
}

// SignOut drops the freshness entry of the user and clears the cookie.
func (h *authHandler) SignOut(c *gin.Context) {
	if claims, ok := middleware.CurrentClaims(c); ok {
		h.authService.SignOut(claims.UID)
	}
	middleware.ClearSessionCookie(c, h.cookie)
	c.Redirect(http.StatusSeeOther, "/")
}

// Session returns the current claims as JSON, or null for anonymous requests.
func (h *authHandler) Session(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, claims)
}

// UpdateSession is the explicit "update" trigger: it forces a re-fetch from
// the user store and reissues the token.
func (h *authHandler) UpdateSession(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	claims, _ = h.authService.Refresh(c.Request.Context(), claims, true)
	tokenString, _, err := h.authService.IssueToken(claims)
	if err != nil {
		h.log.Errorf("Failed to reissue session token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update session"})
		return
	}
	middleware.SetSessionCookie(c, h.cookie, tokenString)
	c.JSON(http.StatusOK, claims)
}

type RegisterRequest struct {
	Account    string `json:"account" binding:"required"`
	Password   string `json:"password" binding:"required"`
	Email      string `json:"email" binding:"required"`
	Firstname  string `json:"firstname" binding:"required"`
	Middlename string `json:"middlename"`
	Lastname   string `json:"lastname" binding:"required"`
	Nickname   string `json:"nickname"`
}

// Register creates a new, unverified user account.
func (h *authHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorf("Failed to bind JSON for registration: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Account:    req.Account,
		Password:   req.Password,
		Email:      req.Email,
		Firstname:  req.Firstname,
		Middlename: req.Middlename,
		Lastname:   req.Lastname,
		Nickname:   req.Nickname,
	})
	if err != nil {
		if errors.Is(err, service.ErrUserAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Errorf("Failed to register user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"account": user.Account,
		"id":      user.ID,
	})
}

// redirectTarget applies the post-sign-in redirect rule: a relative url gets
// appended to the base url, a same-origin absolute url passes through, and
// everything else falls back to the base url.
func (h *authHandler) redirectTarget(raw string) string {
	if raw == "" {
		return h.baseURL + "/"
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return h.baseURL + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return h.baseURL + "/"
	}
	base, err := url.Parse(h.baseURL)
	if err != nil || u.Scheme != base.Scheme || u.Host != base.Host {
		return h.baseURL + "/"
	}
	return raw
}
