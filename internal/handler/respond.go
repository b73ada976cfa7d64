package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pos_backend/internal/config"
	"pos_backend/internal/errx"
	"pos_backend/internal/service"
)

// respondError writes {"error": ..., "details": ...} and records err on the
// context for the request logger. Internal causes never reach the body.
func respondError(c *gin.Context, err error) {
	appErr := errx.From(err)
	_ = c.Error(err)

	body := gin.H{"error": appErr.Message}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.AbortWithStatusJSON(appErr.Status, body)
}

func badRequest(message string, cause error) *errx.AppError {
	e := errx.New(service.ErrInvalidInput, http.StatusBadRequest, message)
	if cause != nil {
		e.With("reason", cause.Error())
	}
	return e
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, badRequest("invalid "+name+" format", nil).With(name, c.Param(name)))
		return 0, false
	}
	return id, true
}

// queryFlag reads boolean query parameters with the same spelling rules as
// boolean env settings.
func queryFlag(c *gin.Context, name string) bool {
	var f config.Flag
	_ = f.Decode(c.Query(name))
	return bool(f)
}
