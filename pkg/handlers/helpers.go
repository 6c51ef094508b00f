package handlers

import (
	"net/http"
	"strconv"

	"opencat/pkg/errs"
	"opencat/pkg/utils"

	"github.com/gin-gonic/gin"
)

// respondError converts a service-layer error into the HTTP taxonomy
//: an *errs.AppError carries its own status, anything else is an
// unexpected 500.
func respondError(c *gin.Context, err error) {
	if appErr, ok := err.(*errs.AppError); ok {
		c.JSON(appErr.StatusCode, gin.H{"error": appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(v), true
}

// requireAppScope aborts with 404 when the path's app id does not match the
// App bound by API-key authentication, so a key for App X can never act on
// App Y's resources. 404, not 403, so the
// caller never learns whether the other app's id exists.
func requireAppScope(c *gin.Context, pathAppID uint) bool {
	authedAppID, ok := utils.GetAuthenticatedAppID(c)
	if !ok || authedAppID != pathAppID {
		c.JSON(http.StatusNotFound, gin.H{"error": "app not found"})
		return false
	}
	return true
}
