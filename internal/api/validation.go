package api

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	digitsOnly   = regexp.MustCompile(`^\d+$`)
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators adds the custom binding rules to gin's validator. It is
// safe to call more than once; every call returns the first outcome.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("binding validator is not go-playground/validator")
			return
		}
		if err := v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
			return digitsOnly.MatchString(fl.Field().String())
		}); err != nil {
			registerErr = fmt.Errorf("register digits rule: %w", err)
		}
	})
	return registerErr
}

type problem struct {
	title   string
	message string
}

// Messages per "Struct.Field.tag", as shown to the user.
var validationMessages = map[string]problem{
	"loginRequest.EmployeeID.required": {"Validation Error", "Employee ID is required"},
	"loginRequest.Password.required":   {"Validation Error", "Password must be at least 6 characters"},
	"loginRequest.Password.min":        {"Validation Error", "Password must be at least 6 characters"},

	"verifyOTPRequest.EmployeeID.required": {"Validation Error", "Employee ID is required"},
	"verifyOTPRequest.OTP.required":        {"Validation Error", "OTP must be exactly 6 digits"},
	"verifyOTPRequest.OTP.len":             {"Validation Error", "OTP must be exactly 6 digits"},
	"verifyOTPRequest.OTP.digits":          {"Validation Error", "OTP must contain only numbers"},

	"passwordResetRequest.Email.required":          {"Email Required", "Please enter your email address"},
	"passwordResetRequest.Email.email":             {"Invalid Email", "Please enter a valid email address"},
	"passwordResetRequest.NewPassword.required":    {"Password Required", "Please enter a new password"},
	"passwordResetRequest.NewPassword.min":         {"Password Too Short", "Password must be at least 6 characters long"},
	"passwordResetRequest.ConfirmPassword.eqfield": {"Passwords Don't Match", "Please make sure both passwords are the same"},

	"createBookingRequest.SlotID.required":         {"Validation Error", "Slot ID is required"},
	"reminderResponseRequest.WillBeThere.required": {"Validation Error", "Please tell us whether you will be there"},
}

// abortValidation answers 400 with the message of the first failed rule.
func abortValidation(c *gin.Context, err error) {
	p := problem{"Validation Error", "Please check your inputs"}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if m, ok := validationMessages[fe.StructNamespace()+"."+fe.Tag()]; ok {
			p = m
		}
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": p.title, "message": p.message})
}
