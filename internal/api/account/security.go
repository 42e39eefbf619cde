package account

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/creavibe/creavibe/internal/api/respond"
	"github.com/creavibe/creavibe/internal/apperr"
	"github.com/creavibe/creavibe/internal/db/models"
	"github.com/creavibe/creavibe/internal/db/repositories"
	"github.com/creavibe/creavibe/internal/middleware"
)

// MaxLabelLength bounds a trusted IP label
const MaxLabelLength = 100

// Activity paging limits
const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// TrustedIPStore persists trusted addresses
type TrustedIPStore interface {
	ListTrustedIPs(ctx context.Context, userID string) ([]*models.TrustedIP, error)
	AddTrustedIP(ctx context.Context, ip *models.TrustedIP) error
	TouchTrustedIP(ctx context.Context, userID, ipAddress string) (bool, error)
	DeleteTrustedIP(ctx context.Context, userID, id string) (bool, error)
}

// AuditReader reads a user's audit log
type AuditReader interface {
	ListAuditLogs(ctx context.Context, userID string, filters repositories.AuditFilters, limit, offset uint64) ([]*models.AuditLog, int, error)
}

// SecurityHandlers handles trusted IP and security activity endpoints
type SecurityHandlers struct {
	ips   TrustedIPStore
	audit AuditReader
}

// NewSecurityHandlers creates a new SecurityHandlers instance
func NewSecurityHandlers(ips TrustedIPStore, audit AuditReader) *SecurityHandlers {
	return &SecurityHandlers{ips: ips, audit: audit}
}

// AddTrustedIPRequest represents the request to trust an address
type AddTrustedIPRequest struct {
	IPAddress string `json:"ip_address"`
	Label     string `json:"label"`
}

// TouchTrustedIPRequest names the address to mark as used. Empty means the caller's address.
type TouchTrustedIPRequest struct {
	IPAddress string `json:"ip_address"`
}

// normalizeIP validates an IPv4 or IPv6 literal and returns its canonical form
func normalizeIP(raw string) (string, error) {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil {
		return "", apperr.Validation("Invalid IP address", gin.H{"ip_address": raw})
	}
	return ip.String(), nil
}

// @Summary      List trusted IPs
// @Tags         Security
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  respond.Envelope
// @Router       /api/v1/security/trusted-ips [get]
func (h *SecurityHandlers) ListTrustedIPsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ips, err := h.ips.ListTrustedIPs(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			respond.Error(c, apperr.Database(err))
			return
		}
		respond.OK(c, ips)
	}
}

// @Summary      Add trusted IP
// @Description  Trust an IPv4 or IPv6 address. Adding a known address updates its label.
// @Tags         Security
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  AddTrustedIPRequest  true  "Address and label"
// @Success      201  {object}  respond.Envelope
// @Failure      400  {object}  respond.Envelope
// @Router       /api/v1/security/trusted-ips [post]
func (h *SecurityHandlers) AddTrustedIPHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddTrustedIPRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, apperr.Validation("Invalid request body", err.Error()))
			return
		}

		addr, err := normalizeIP(req.IPAddress)
		if err != nil {
			respond.Error(c, err)
			return
		}
		label := strings.TrimSpace(req.Label)
		if utf8.RuneCountInString(label) > MaxLabelLength {
			respond.Error(c, apperr.Validation("Label must be at most 100 characters", nil))
			return
		}

		ip := &models.TrustedIP{
			UserID:    middleware.GetUserID(c),
			IPAddress: addr,
			Label:     label,
		}
		if err := h.ips.AddTrustedIP(c.Request.Context(), ip); err != nil {
			respond.Error(c, apperr.Database(err))
			return
		}
		respond.Created(c, ip)
	}
}

// @Summary      Mark trusted IP as used
// @Description  Set last_used on a trusted address. Defaults to the caller's address.
// @Tags         Security
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  TouchTrustedIPRequest  false  "Address"
// @Success      200  {object}  respond.Envelope
// @Failure      404  {object}  respond.Envelope
// @Router       /api/v1/security/trusted-ips/touch [post]
func (h *SecurityHandlers) TouchTrustedIPHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TouchTrustedIPRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				respond.Error(c, apperr.Validation("Invalid request body", err.Error()))
				return
			}
		}
		raw := req.IPAddress
		if raw == "" {
			raw = c.ClientIP()
		}

		addr, err := normalizeIP(raw)
		if err != nil {
			respond.Error(c, err)
			return
		}

		found, err := h.ips.TouchTrustedIP(c.Request.Context(), middleware.GetUserID(c), addr)
		if err != nil {
			respond.Error(c, apperr.Database(err))
			return
		}
		if !found {
			respond.Error(c, apperr.NotFound("Trusted IP"))
			return
		}
		respond.OK(c, gin.H{"ip_address": addr, "touched": true})
	}
}

// @Summary      Delete trusted IP
// @Tags         Security
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Trusted IP ID"
// @Success      200  {object}  respond.Envelope
// @Failure      404  {object}  respond.Envelope
// @Router       /api/v1/security/trusted-ips/{id} [delete]
func (h *SecurityHandlers) DeleteTrustedIPHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := uuid.Parse(id); err != nil {
			respond.Error(c, apperr.NotFound("Trusted IP"))
			return
		}

		deleted, err := h.ips.DeleteTrustedIP(c.Request.Context(), middleware.GetUserID(c), id)
		if err != nil {
			respond.Error(c, apperr.Database(err))
			return
		}
		if !deleted {
			respond.Error(c, apperr.NotFound("Trusted IP"))
			return
		}
		respond.OK(c, gin.H{"id": id, "deleted": true})
	}
}

// @Summary      Security activity
// @Description  The caller's audit log, newest first.
// @Tags         Security
// @Security     Bearer
// @Produce      json
// @Param        action      query  string  false  "Exact action, e.g. \"POST /api/v1/tokens\""
// @Param        start_date  query  string  false  "RFC3339 lower bound"
// @Param        end_date    query  string  false  "RFC3339 upper bound"
// @Param        limit       query  int     false  "Page size (default 50, max 200)"
// @Param        offset      query  int     false  "Offset"
// @Success      200  {object}  respond.Envelope
// @Failure      400  {object}  respond.Envelope
// @Router       /api/v1/security/activity [get]
func (h *SecurityHandlers) ListActivityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filters repositories.AuditFilters
		if action := c.Query("action"); action != "" {
			filters.Action = &action
		}
		for param, dst := range map[string]**time.Time{
			"start_date": &filters.StartDate,
			"end_date":   &filters.EndDate,
		} {
			raw := c.Query(param)
			if raw == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				respond.Error(c, apperr.Validation("Invalid "+param+", expected RFC3339", nil))
				return
			}
			*dst = &t
		}

		limit := parseBound(c.Query("limit"), defaultActivityLimit, maxActivityLimit)
		if limit == 0 {
			limit = defaultActivityLimit
		}
		offset := parseBound(c.Query("offset"), 0, 0)

		logs, total, err := h.audit.ListAuditLogs(c.Request.Context(), middleware.GetUserID(c), filters, limit, offset)
		if err != nil {
			respond.Error(c, apperr.Database(err))
			return
		}
		respond.OK(c, gin.H{
			"logs":   logs,
			"total":  total,
			"limit":  limit,
			"offset": offset,
		})
	}
}

// parseBound parses a non-negative integer query value. Missing or invalid input yields
// def; max > 0 caps the result.
func parseBound(raw string, def, max uint64) uint64 {
	if raw == "" {
		return def
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}
