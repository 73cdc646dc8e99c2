package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/infinity-9427/invoicing/internal/interfaces/http/dto"
)

// SetupValidator makes validation errors report json/form field names
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
	}
}

// FormatValidationErrors converts validator output into the 422 envelope
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			details = append(details, dto.ValidationDetail{
				Field:   fieldPath(e),
				Message: validationMessage(e),
				Tag:     e.Tag(),
			})
		}
	}
	return dto.NewValidationErrorResponse("The given data was invalid", requestID, details)
}

// HandleValidationError writes the response for a failed ShouldBind call.
// Malformed bodies are 400; well-formed bodies that break a rule are 422.
func HandleValidationError(c *gin.Context, err error) {
	requestID := GetRequestID(c)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusUnprocessableEntity, FormatValidationErrors(err, requestID))
		return
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	msg := "Malformed request"
	switch {
	case errors.As(err, &syntaxErr):
		msg = "Request body is not valid JSON"
	case errors.As(err, &typeErr):
		msg = "Field " + typeErr.Field + " has the wrong type"
	}
	c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(dto.ErrCodeBadRequest, msg, requestID))
}

// fieldPath drops the top-level struct name: "CreateInvoiceRequest.items[0].name" -> "items[0].name"
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func validationMessage(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		if e.Kind() == reflect.String {
			return field + " must be at least " + e.Param() + " characters"
		}
		if e.Kind() == reflect.Slice {
			return field + " must contain at least " + e.Param() + " entries"
		}
		return field + " must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return field + " may not be greater than " + e.Param() + " characters"
		}
		return field + " may not be greater than " + e.Param()
	case "uuid":
		return field + " must be a valid UUID"
	case "oneof":
		return field + " must be one of: " + e.Param()
	case "gt", "gte", "lt", "lte":
		return field + " is out of range"
	case "eqfield":
		return field + " must match " + strings.ToLower(e.Param())
	case "datetime":
		return field + " must be a date formatted as " + e.Param()
	default:
		return field + " is invalid"
	}
}
