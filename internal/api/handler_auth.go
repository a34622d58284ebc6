package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"gupio-parking-backend/internal/auth"
	"gupio-parking-backend/internal/mw"
	"gupio-parking-backend/internal/parking"
)

type loginRequest struct {
	EmployeeID string `json:"employeeId" binding:"required"`
	Password   string `json:"password" binding:"required,min=6"`
}

// Login checks the credentials and sends an OTP.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortValidation(c, err)
		return
	}

	challenge, err := h.svc.RequestOTP(req.EmployeeID, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid Credentials", "message": "Please use EMP001 / password123 for testing"})
		return
	}
	if err != nil {
		log.Printf("Error requesting OTP for %s: %v", req.EmployeeID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"title":      "OTP Sent",
		"message":    "OTP sent to your registered mobile number",
		"employeeId": challenge.EmployeeID,
	}
	if challenge.OTP != "" {
		resp["otp"] = challenge.OTP
		resp["message"] = "OTP sent to your registered mobile number: " + challenge.OTP
	}
	c.JSON(http.StatusOK, resp)
}

type verifyOTPRequest struct {
	EmployeeID string `json:"employeeId" binding:"required"`
	OTP        string `json:"otp" binding:"required,len=6,digits"`
}

// VerifyOTP completes the login and returns a session token.
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortValidation(c, err)
		return
	}

	session, err := h.svc.VerifyOTP(req.EmployeeID, req.OTP)
	if errors.Is(err, parking.ErrInvalidOTP) || errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid OTP", "message": "Please enter the correct OTP"})
		return
	}
	if err != nil {
		log.Printf("Error verifying OTP for %s: %v", req.EmployeeID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"title":   "Login Successful",
		"message": "Welcome to Gupio Smart Parking!",
		"token":   session.Token,
		"user":    session.User,
	})
}

type otpBackRequest struct {
	EmployeeID string `json:"employeeId"`
}

// BackFromOTP returns to the credentials step.
func (h *Handler) BackFromOTP(c *gin.Context) {
	var req otpBackRequest
	// The body is optional.
	_ = c.ShouldBindJSON(&req)
	h.svc.CancelOTP(req.EmployeeID)
	c.Status(http.StatusNoContent)
}

type passwordResetRequest struct {
	Email           string `json:"email" binding:"required,email"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" binding:"eqfield=NewPassword"`
}

// ResetPassword validates a reset request. Credentials are not changed.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req passwordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortValidation(c, err)
		return
	}

	log.Printf("Password reset requested for %s", req.Email)
	c.JSON(http.StatusOK, gin.H{"title": "Password Reset Successful", "message": "Your password has been updated successfully"})
}

// Logout ends the session of the caller.
func (h *Handler) Logout(c *gin.Context) {
	h.svc.Logout(mw.EmployeeID(c))
	c.Status(http.StatusNoContent)
}
