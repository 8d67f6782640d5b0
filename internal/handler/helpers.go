package handler

import (
	"errors"
	"net/http"
	"reflect"

	"kioscopos/internal/apierror"
	"kioscopos/internal/middleware"
	"kioscopos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// Malformed input that never reaches a service.
var (
	errBadJSON  = apierror.Validation("InvalidJSON", "JSON invalido")
	errBadQuery = apierror.Validation("InvalidQuery", "Parametros invalidos")
)

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, errBadJSON.Withf("JSON invalido: %v", err))
		return false
	}
	return runValidator(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, filter interface{}) bool {
	if err := c.ShouldBindQuery(filter); err != nil {
		respondError(c, errBadQuery.Withf("Parametros invalidos: %v", err))
		return false
	}
	return runValidator(c, filter)
}

func runValidator(c *gin.Context, v interface{}) bool {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			respondError(c, errBadQuery.Withf("%v", err))
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

// pathID parses the :name path parameter as a UUID.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, service.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// ok writes the success envelope.
func ok(c *gin.Context, status int, data any) {
	c.JSON(status, apierror.OK(data))
}

// respondError writes the error envelope for err. Persistence failures were
// already logged by the service with their input digest.
func respondError(c *gin.Context, err error) {
	status, body := apierror.FromError(err)
	if status >= http.StatusInternalServerError {
		log.Error().Str("request_id", c.GetString(middleware.RequestIDKey)).Str("path", c.FullPath()).Err(err).Msg("request failed")
	}
	c.JSON(status, body)
}
