package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/unlearnai/dagster/errors"
)

// DataResponse wraps every successful body.
type DataResponse struct {
	Data any `json:"data"`
}

// writeError serves err with the status of its code. Errors that are not
// AppErrors are served as INTERNAL_ERROR and their text is withheld.
func writeError(c *gin.Context, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

func writeData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}
