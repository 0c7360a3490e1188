package handler

import (
	"errors"
	"net/http"

	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/allocation"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/apierror"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/dto"
	"github.com/Patrickdoranlearning/hortitrack-sub016/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid JSON: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// session returns the caller identity or writes 401.
func session(c *gin.Context) (dto.Session, bool) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Authentication required"))
	}
	return sess, ok
}

// statusFor maps an action result onto an HTTP status. The body is always the
// result itself so clients can rely on the success/error fields.
func statusFor(res dto.ActionResult) int {
	if res.Success {
		return http.StatusOK
	}
	switch allocation.Kind(res.ErrorKind) {
	case allocation.KindValidation:
		return http.StatusUnprocessableEntity
	case allocation.KindStock:
		return http.StatusConflict
	case allocation.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes a failed action result for errors returned by services
// that do not produce results themselves (reports).
func respondError(c *gin.Context, err error) {
	res := dto.ActionResult{Error: err.Error(), ErrorKind: string(allocation.KindOf(err))}
	if allocation.KindOf(err) == allocation.KindInfrastructure {
		_ = c.Error(err)
		res.Error = "Internal error, please try again"
	}
	c.JSON(statusFor(res), res)
}
