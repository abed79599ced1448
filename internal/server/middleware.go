package server

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const sessionCookieName = "payflow_checkout"

// sessionKey returns the shopper's browsing key, minting the HttpOnly cookie
// on first contact. The key scopes the checkout session store; it carries no
// identity.
func (s *Server) sessionKey(c *gin.Context) string {
	if key, err := c.Cookie(sessionCookieName); err == nil && key != "" {
		return key
	}

	key := uuid.NewString()
	maxAge := int(s.settings.Current().SessionTTL().Seconds())
	secure := s.cfg.Environment == "production"
	c.SetCookie(sessionCookieName, key, maxAge, "/", "", secure, true)
	return key
}
