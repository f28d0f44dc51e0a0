package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/soaringjerry/epds/internal/utils"
)

type ctxKey int

const localeKey ctxKey = 1

// SupportedLocales are the languages server messages exist in.
var SupportedLocales = []string{"en", "zh"}

// Locale extracts locale from query param (lang) or Accept-Language and
// stores it in the request context.
func Locale() gin.HandlerFunc {
	return func(c *gin.Context) {
		locale := utils.DetermineLocale(c.Query("lang"), c.GetHeader("Accept-Language"), SupportedLocales, "en")
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), localeKey, locale))
		c.Header("Content-Language", locale)
		c.Next()
	}
}

// LocaleFromContext retrieves the locale stored by Locale.
func LocaleFromContext(ctx context.Context) string {
	if v := ctx.Value(localeKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "en"
}
