package devserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/patidost/pati_admin_v1/internal/devserver/store"
)

// tokenEndpoint mimics the identity provider's OpenID Connect token
// endpoint: password and refresh_token grants over a form body.
func (s *Server) tokenEndpoint(c *gin.Context) {
	switch c.PostForm("grant_type") {
	case "password":
		s.passwordGrant(c)
	case "refresh_token":
		s.refreshGrant(c)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_grant_type"})
	}
}

func (s *Server) passwordGrant(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	user, err := s.store.UserByEmail(c.Request.Context(), username)
	if err != nil || !user.Active {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_grant", "error_description": "invalid credentials"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_grant", "error_description": "invalid credentials"})
		return
	}
	s.respondTokens(c, user)
}

func (s *Server) refreshGrant(c *gin.Context) {
	email, err := s.tokens.parseRefresh(c.PostForm("refresh_token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_grant", "error_description": "invalid refresh token"})
		return
	}
	user, err := s.store.UserByEmail(c.Request.Context(), email)
	if err != nil || !user.Active {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_grant", "error_description": "user not found or inactive"})
		return
	}
	s.respondTokens(c, user)
}

func (s *Server) respondTokens(c *gin.Context, user *store.User) {
	access, err := s.tokens.issueAccess(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	refresh, err := s.tokens.issueRefresh(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "Bearer",
		"expires_in":    int(s.tokens.accessTTL.Seconds()),
	})
}
