package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ExtractUintParam parses the path parameter paramName as a positive id and
// stores it under contextKey.
func ExtractUintParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
		if err != nil || id == 0 {
			abortJSON(c, http.StatusBadRequest, fmt.Sprintf("Invalid %s", paramName), "validation_error")
			return
		}
		c.Set(contextKey, uint(id))
		c.Next()
	}
}
