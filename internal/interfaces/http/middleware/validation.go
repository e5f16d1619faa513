package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/erp/reception/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var setupOnce sync.Once

// SetupValidator registers the docprefix tag on gin's validator and makes
// field errors use the json, form or uri name. Idempotent.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(wireName)
		_ = v.RegisterValidation("docprefix", validateDocPrefix)
	})
}

// wireName is the name a client used for the field
func wireName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form", "uri"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		switch name {
		case "-":
			return ""
		case "":
			continue
		}
		return name
	}
	return ""
}

// validateDocPrefix accepts a leading fragment of a document number such as
// "REC", "REC-2026" or "rec-2026-000": ASCII letters, digits and hyphens.
func validateDocPrefix(fl validator.FieldLevel) bool {
	return strings.IndexFunc(fl.Field().String(), func(r rune) bool {
		return !(r == '-' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z'))
	}) < 0
}

// HandleBindingError answers 400 for a request that failed to bind: field
// details for validation failures, ERR_INVALID_JSON for anything else.
func HandleBindingError(c *gin.Context, err error) {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInvalidJSON, "Malformed request: "+err.Error(), GetRequestID(c)))
		return
	}

	details := make([]dto.ValidationDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: describe(fe)})
	}
	c.AbortWithStatusJSON(http.StatusBadRequest,
		dto.NewValidationErrorResponse("Request validation failed", GetRequestID(c), details))
}

var tagMessages = map[string]string{
	"required":  "This field is required",
	"uuid":      "Invalid UUID format",
	"oneof":     "Must be one of: %s",
	"gt":        "Must be greater than %s",
	"gte":       "Must be greater than or equal to %s",
	"docprefix": "Must contain only letters, digits and hyphens",
}

func describe(fe validator.FieldError) string {
	tag := fe.Tag()
	if tag == "min" || tag == "max" {
		bound := "at least "
		if tag == "max" {
			bound = "at most "
		}
		msg := "Must be " + bound + fe.Param()
		if fe.Kind() == reflect.String {
			msg += " characters"
		}
		return msg
	}
	msg, ok := tagMessages[tag]
	if !ok {
		return "Invalid value"
	}
	return strings.Replace(msg, "%s", fe.Param(), 1)
}
