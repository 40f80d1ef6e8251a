package authgin

import (
	"github.com/gin-gonic/gin"
	serrors "github.com/pilab-dev/shadow-auth/errors"
	"github.com/rs/zerolog/log"
)

// renderError aborts the request with the JSON form of err. Untyped errors become a
// generic server error so that internal messages never reach the client.
func renderError(c *gin.Context, err error) {
	authErr, ok := serrors.As(err)
	if !ok {
		authErr = serrors.NewInternal("internal server error", err)
	}

	status := authErr.HTTPStatus()
	if status >= 500 {
		log.Error().Ctx(c.Request.Context()).Err(err).Str("path", c.FullPath()).Msg("request failed")
	} else {
		log.Debug().Ctx(c.Request.Context()).Err(err).Str("path", c.FullPath()).Msg("request rejected")
	}

	c.AbortWithStatusJSON(status, authErr)
}
