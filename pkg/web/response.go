// Package web defines common components for a web application.
package web

import "github.com/go-playground/validator/v10"

// JSONError provides type for explicit json encoded error response.
type JSONError struct {
	Error string `json:"error"`
}

// Error wraps a given err into json frinedly struct.
func Error(err error) JSONError {
	return JSONError{Error: err.Error()}
}

// Response holds the common response type for all APIs.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// GetErrorMsg returns a human readable message for a failed binding validation.
func GetErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return " is required"
	case "required_if":
		return " is required"
	case "email":
		return " must be a valid email address"
	case "oneof":
		return " must be one of " + fe.Param()
	case "min":
		return " must be greater or equal " + fe.Param()
	case "max":
		return " must be less or equal " + fe.Param()
	}

	return " is invalid"
}
