package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"nutrivision/pkg/devicetoken"
)

// deviceAuthMiddleware requires a device token signed with secret. An empty
// secret disables the check.
func deviceAuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}
		tokenString, ok := devicetoken.FromHeader(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing or invalid Authorization header"})
			return
		}
		claims, err := devicetoken.Verify(secret, tokenString)
		if err != nil {
			log.Printf("rejected upload from %s: %v", c.ClientIP(), err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
			return
		}
		c.Set("device", claims.Device)
		c.Next()
	}
}
