package httpapi

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wageattest/attestation-engine/internal/attestation"
	"github.com/wageattest/attestation-engine/internal/clock"
	"github.com/wageattest/attestation-engine/internal/errs"
	"github.com/wageattest/attestation-engine/internal/ledger"
	"github.com/wageattest/attestation-engine/internal/registry"
	"github.com/wageattest/attestation-engine/internal/storage/mysqlstore"
	"github.com/wageattest/attestation-engine/internal/validator"
	"github.com/wageattest/attestation-engine/pkg/replay"
)

// AttestationHandler exposes attestation submission, signing, validation and
// admission (§4.A, §4.D, §4.E) over HTTP, and read access to the Ledger. The
// in-memory Ledger (§4.F) remains the single source of truth for admission
// ordering and the Validator's checks; replayStore/durable are an optional
// write-through to the durable Storage collaborator (§6) so anti-replay
// state and attestation history survive a process restart.
type AttestationHandler struct {
	registry    *registry.Registry
	validator   *validator.Validator
	ledger      *ledger.Ledger
	clock       clock.Clock
	replayStore replay.Store
	durable     *mysqlstore.Store
	logger      *zap.Logger
}

// NewAttestationHandler constructs an AttestationHandler. replayStore and
// durable may be nil, in which case durability write-through is skipped and
// only the in-memory Ledger backs anti-replay/history for the process
// lifetime.
func NewAttestationHandler(reg *registry.Registry, v *validator.Validator, led *ledger.Ledger, c clock.Clock, replayStore replay.Store, durable *mysqlstore.Store, logger *zap.Logger) *AttestationHandler {
	return &AttestationHandler{registry: reg, validator: v, ledger: led, clock: c, replayStore: replayStore, durable: durable, logger: logger}
}

// RegisterRoutes wires this handler's routes onto rg.
func (h *AttestationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	attestations := rg.Group("/attestations")
	{
		attestations.POST("", h.Submit)
		attestations.GET("/:attestation_id", h.Get)
	}
	rg.GET("/wallets/:wallet/attestations", h.ListForWallet)
}

type submitAttestationRequest struct {
	EmployerID     string  `json:"employer_id" binding:"required"`
	EmployeeWallet string  `json:"employee_wallet" binding:"required"`
	WageAmount     int64   `json:"wage_amount" binding:"required"`
	PeriodStart    string  `json:"period_start" binding:"required"`
	PeriodEnd      string  `json:"period_end" binding:"required"`
	HoursWorked    float64 `json:"hours_worked" binding:"required"`
	HourlyRate     int64   `json:"hourly_rate" binding:"required"`
	PeriodNonce    string  `json:"period_nonce" binding:"required"`
}

type submitAttestationResponse struct {
	AttestationID string   `json:"attestation_id"`
	IsValid       bool     `json:"is_valid"`
	Errors        []string `json:"errors,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	SecurityFlags []string `json:"security_flags,omitempty"`
	Nullifier     string   `json:"nullifier,omitempty"`
	Signature     string   `json:"signature,omitempty"`
}

// Submit handles POST /attestations: builds an Attestation from the request,
// has the employer's key material sign it (§4.B), then runs it through the
// Validator (§4.E), admitting it to the Ledger on success.
func (h *AttestationHandler) Submit(c *gin.Context) {
	var req submitAttestationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, errs.InvalidAttestationFormat([]string{err.Error()}))
		return
	}

	periodStart, err := time.Parse(time.RFC3339, req.PeriodStart)
	if err != nil {
		RespondError(c, errs.InvalidAttestationFormat([]string{"period_start must be RFC3339"}))
		return
	}
	periodEnd, err := time.Parse(time.RFC3339, req.PeriodEnd)
	if err != nil {
		RespondError(c, errs.InvalidAttestationFormat([]string{"period_end must be RFC3339"}))
		return
	}

	a := &attestation.Attestation{
		EmployerID:     req.EmployerID,
		EmployeeWallet: req.EmployeeWallet,
		WageAmount:     req.WageAmount,
		PeriodStart:    periodStart.UTC(),
		PeriodEnd:      periodEnd.UTC(),
		HoursWorked:    req.HoursWorked,
		HourlyRate:     req.HourlyRate,
		PeriodNonce:    req.PeriodNonce,
		Timestamp:      h.clock.Now().UTC(),
	}
	a.NormalizeWallet()

	if reasons := a.Validate(); len(reasons) > 0 {
		RespondError(c, errs.InvalidAttestationFormat(reasons))
		return
	}

	// Durable anti-replay pre-check (§6): the in-memory Ledger already
	// re-checks this atomically inside the Validator's pair lock, but a
	// restarted process has forgotten its in-memory nonce set, so this
	// catches a replay the fresh Ledger would otherwise miss.
	if h.replayStore != nil {
		if seen, err := h.replayStore.NonceSeen(c.Request.Context(), a.PeriodKey()); err == nil && seen {
			RespondError(c, errs.ReplayAttempt(a.PeriodKey()))
			return
		}
	}

	digest, err := a.SigningDigest()
	if err != nil {
		RespondError(c, errs.CanonicalizationFailed(err.Error()))
		return
	}

	sigInfo, err := h.registry.SignAttestation(req.EmployerID, GetRequestID(c), digest[:])
	if err != nil {
		RespondError(c, err)
		return
	}
	a.Signature = sigInfo.Signature.RS[:]
	a.RecoveryID = sigInfo.Signature.RecoveryID

	attestationID, err := a.ComputeID()
	if err != nil {
		RespondError(c, errs.CanonicalizationFailed(err.Error()))
		return
	}
	a.AttestationID = attestationID

	result, err := h.validator.Validate(a)
	if err != nil {
		RespondError(c, err)
		return
	}

	resp := submitAttestationResponse{
		AttestationID: attestationID,
		IsValid:       result.IsValid,
		Errors:        result.Errors,
		Warnings:      result.Warnings,
		SecurityFlags: result.SecurityFlags,
		Nullifier:     result.Nullifier,
	}
	if result.IsValid {
		resp.Signature = hex.EncodeToString(sigInfo.Signature.RS[:])
		h.writeThrough(c.Request.Context(), a, result.Nullifier)
		RespondCreated(c, resp)
		return
	}
	RespondOK(c, resp)
}

// writeThrough persists an admitted attestation to the durable Storage
// collaborator (§6), best-effort: a failure here does not invalidate the
// admission already recorded in the Ledger, it only weakens durability
// across a restart, so it is logged rather than surfaced to the caller.
func (h *AttestationHandler) writeThrough(ctx context.Context, a *attestation.Attestation, nullifier string) {
	if h.replayStore != nil {
		if err := h.replayStore.InsertNonce(ctx, a.PeriodKey()); err != nil {
			h.logger.Warn("durable nonce write-through failed", zap.Error(err))
		}
		if err := h.replayStore.InsertNullifier(ctx, nullifier); err != nil {
			h.logger.Warn("durable nullifier write-through failed", zap.Error(err))
		}
	}
	if h.durable != nil {
		admitted, ok := h.ledger.Get(a.AttestationID)
		if !ok {
			return
		}
		if err := h.durable.Put(ctx, a, nullifier, admitted.AdmittedAt); err != nil {
			h.logger.Warn("durable attestation write-through failed", zap.Error(err))
		}
	}
}

// Get handles GET /attestations/:attestation_id.
func (h *AttestationHandler) Get(c *gin.Context) {
	admitted, ok := h.ledger.Get(c.Param("attestation_id"))
	if !ok {
		RespondError(c, errs.AttestationNotFound(c.Param("attestation_id")))
		return
	}
	RespondOK(c, admitted)
}

// ListForWallet handles GET /wallets/:wallet/attestations?employer_id=...
func (h *AttestationHandler) ListForWallet(c *gin.Context) {
	wallet := c.Param("wallet")
	employerID := c.Query("employer_id")
	RespondOK(c, h.ledger.List(wallet, employerID))
}
