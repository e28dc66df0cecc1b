package httpapi

import (
	"encoding/hex"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wageattest/attestation-engine/internal/errs"
	"github.com/wageattest/attestation-engine/internal/policy"
	"github.com/wageattest/attestation-engine/internal/registry"
)

// EmployerHandler exposes the Employer Registry (§4.C) over HTTP.
type EmployerHandler struct {
	registry *registry.Registry
}

// NewEmployerHandler constructs an EmployerHandler.
func NewEmployerHandler(reg *registry.Registry) *EmployerHandler {
	return &EmployerHandler{registry: reg}
}

// RegisterRoutes wires this handler's routes onto rg, matching the teacher's
// handler.RegisterRoutes(router) convention.
func (h *EmployerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	employers := rg.Group("/employers")
	{
		employers.POST("", h.Register)
		employers.GET("/:employer_id", h.Info)
		employers.PUT("/:employer_id/policy", h.SetPolicy)
		employers.GET("/:employer_id/audit-logs", h.AuditLogs)
	}
}

type registerRequest struct {
	CompanyName      string `json:"company_name" binding:"required"`
	Domain           string `json:"domain" binding:"required"`
	EmployeeCount    int    `json:"employee_count" binding:"required,min=1"`
	PayrollFrequency string `json:"payroll_frequency"`
	ContactEmail     string `json:"contact_email"`
}

// Register handles POST /employers.
func (h *EmployerHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, errs.InvalidAttestationFormat([]string{err.Error()}))
		return
	}

	freq := registry.PayrollFrequency(req.PayrollFrequency)
	if freq == "" {
		freq = registry.Biweekly
	}

	profile, err := h.registry.Register(registry.RegisterInput{
		CompanyName:      req.CompanyName,
		Domain:           req.Domain,
		EmployeeCount:    req.EmployeeCount,
		PayrollFrequency: freq,
		ContactEmail:     req.ContactEmail,
		RequestID:        GetRequestID(c),
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	RespondCreated(c, gin.H{
		"employer_id":             profile.EmployerID,
		"public_key":              hex.EncodeToString(profile.PublicKey),
		"key_id":                  profile.KeyID,
		"verification_status":     profile.VerificationStatus,
		"daily_attestation_limit": profile.DailyAttestationLimit,
		"registered_at":           profile.RegisteredAt,
	})
}

// Info handles GET /employers/:employer_id.
func (h *EmployerHandler) Info(c *gin.Context) {
	profile, err := h.registry.Info(c.Param("employer_id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, profile)
}

type setPolicyRequest struct {
	MaxWagePerAttestation       int64   `json:"max_wage_per_attestation" binding:"required"`
	MinHourlyRate               int64   `json:"min_hourly_rate" binding:"required"`
	MaxHourlyRate               int64   `json:"max_hourly_rate" binding:"required"`
	MaxHoursPerDay              float64 `json:"max_hours_per_day" binding:"required"`
	AllowFutureAttestations     bool    `json:"allow_future_attestations"`
	RequireExactWageCalculation bool    `json:"require_exact_wage_calculation"`
	MaxAttestationAgeSeconds    int64   `json:"max_attestation_age_seconds" binding:"required"`
}

// SetPolicy handles PUT /employers/:employer_id/policy.
func (h *EmployerHandler) SetPolicy(c *gin.Context) {
	employerID := c.Param("employer_id")

	existing, err := h.registry.Policy(employerID)
	if err != nil {
		RespondError(c, err)
		return
	}

	var req setPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, errs.InvalidAttestationFormat([]string{err.Error()}))
		return
	}

	bundle := policy.Bundle{
		MaxDailyAttestations:        existing.MaxDailyAttestations,
		MaxWagePerAttestation:       req.MaxWagePerAttestation,
		MinHourlyRate:               req.MinHourlyRate,
		MaxHourlyRate:               req.MaxHourlyRate,
		MaxHoursPerDay:              req.MaxHoursPerDay,
		AllowFutureAttestations:     req.AllowFutureAttestations,
		RequireExactWageCalculation: req.RequireExactWageCalculation,
		MaxAttestationAge:           time.Duration(req.MaxAttestationAgeSeconds) * time.Second,
	}

	if err := h.registry.SetPolicy(employerID, bundle); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, bundle)
}

// AuditLogs handles GET /employers/:employer_id/audit-logs.
func (h *EmployerHandler) AuditLogs(c *gin.Context) {
	employerID := c.Param("employer_id")
	if _, err := h.registry.Info(employerID); err != nil {
		RespondError(c, err)
		return
	}
	limit := 100
	RespondOK(c, h.registry.AuditLogs(employerID, limit))
}
