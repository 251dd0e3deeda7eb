package models

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json field names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags and folds failures into an ErrorResponse.
func validateStruct(s any, code, message string) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	resp := &ErrorResponse{Code: code, Message: message}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			resp.Details = append(resp.Details, ValidationErrorDetail{
				Field:  fe.Field(),
				Reason: fe.Tag(),
			})
		}
	}
	return resp
}

type CreateSessionRequest struct {
	Role          string        `json:"role" validate:"required"`
	Level         string        `json:"level" validate:"required"`
	InterviewType InterviewType `json:"interviewType" validate:"required,oneof=oral-only coding-mix"`
	Count         int           `json:"count" validate:"required,min=1,max=50"`
}

func (r *CreateSessionRequest) Validate() error {
	r.Role = strings.TrimSpace(r.Role)
	r.Level = strings.TrimSpace(r.Level)
	return validateStruct(r, "missing_fields", "Please specify role, level, interview type, and question count.")
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *RegisterRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validateStruct(r, "missing_fields", "Please enter all required fields (Name, Email, Password).")
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validateStruct(r, "missing_fields", "Please enter email and password.")
}

type GoogleLoginRequest struct {
	Token string `json:"token" validate:"required"`
}

func (r *GoogleLoginRequest) Validate() error {
	return validateStruct(r, "missing_token", "Google ID token is required.")
}

// every field is optional, empty values keep the stored ones
type UpdateProfileRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email" validate:"omitempty,email"`
	PreferredRole string `json:"preferredRole"`
	Password      string `json:"password"`
}

func (r *UpdateProfileRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validateStruct(r, "invalid_profile", "Invalid profile update.")
}
