package middleware

import (
	"net/http"

	"github.com/ErlanBelekov/store-finder/internal/flash"
	"github.com/gin-gonic/gin"
)

const msgPasswordsMismatch = "Oops! Your passwords do not match!"

// ConfirmPasswords halts the request unless the password and password-confirm
// form fields are equal.
func ConfirmPasswords() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.PostForm("password") == c.PostForm("password-confirm") {
			c.Next()
			return
		}
		flash.Add(c, flash.Error, msgPasswordsMismatch)
		RedirectBack(c)
		c.Abort()
	}
}

// RedirectBack redirects to the Referer, or "/" when there is none.
func RedirectBack(c *gin.Context) {
	to := c.GetHeader("Referer")
	if to == "" {
		to = "/"
	}
	c.Redirect(http.StatusFound, to)
}
