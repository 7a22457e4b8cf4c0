package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/phantomos/governor/internal/governor"
	"github.com/phantomos/governor/internal/scan"
	"github.com/phantomos/governor/internal/telemetry"
	"github.com/phantomos/governor/internal/types"
)

// EvaluateBody is the request payload for POST /api/evaluate
type EvaluateBody struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"omitempty,max=63"`
	Description string `json:"description" binding:"omitempty,max=255"`
	PID         uint32 `json:"pid"`
	Caps        string `json:"caps"`
}

// handleEvaluate handles POST /api/evaluate
func (s *APIServer) handleEvaluate(c *gin.Context) {
	var body EvaluateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}

	resp := s.gov.Evaluate(governor.EvalRequest{
		Code:        []byte(body.Code),
		Name:        body.Name,
		Description: body.Description,
		OriginPID:   body.PID,
		OriginCaps:  types.ParseCapabilities(body.Caps),
	})

	Success(c, resp)
}

// CheckBody is the request payload for POST /api/check
type CheckBody struct {
	Policy string `json:"policy" binding:"required"`
	PID    uint32 `json:"pid"`
	Caps   string `json:"caps"`
	Path   string `json:"path"`
	Size   uint64 `json:"size"`
	Detail string `json:"detail" binding:"omitempty,max=255"`
}

// handleCheck handles POST /api/check
func (s *APIServer) handleCheck(c *gin.Context) {
	var body CheckBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}

	policy := types.Policy(body.Policy)
	if !policy.Valid() || policy == types.PolicyCodeEval {
		Error(c, http.StatusBadRequest, "Unknown policy tag")
		return
	}

	result := s.gov.CheckOperation(governor.Operation{
		Policy: policy,
		PID:    body.PID,
		Caps:   types.ParseCapabilities(body.Caps),
		Path:   body.Path,
		Size:   body.Size,
		Detail: body.Detail,
	})

	Success(c, result)
}

// VerifyBody is the request payload for POST /api/verify
type VerifyBody struct {
	Fingerprint string `json:"fingerprint" binding:"required,len=64,hexadecimal"`
	Signature   string `json:"signature" binding:"required,len=32,hexadecimal"`
}

// handleVerify handles POST /api/verify
func (s *APIServer) handleVerify(c *gin.Context) {
	var body VerifyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}

	fp, ok := scan.ParseFingerprint(body.Fingerprint)
	if !ok {
		Error(c, http.StatusBadRequest, "Bad fingerprint")
		return
	}
	sig, err := governor.ParseSignature(body.Signature)
	if err != nil {
		Error(c, http.StatusBadRequest, "Bad signature")
		return
	}

	Success(c, gin.H{
		"fingerprint": body.Fingerprint,
		"valid":       s.gov.Verify(fp, sig),
	})
}

// handleStats handles GET /api/stats
func (s *APIServer) handleStats(c *gin.Context) {
	Success(c, s.gov.Stats())
}

// handleOverview handles GET /api/overview
func (s *APIServer) handleOverview(c *gin.Context) {
	Success(c, s.gov.Overview())
}

// ListQuery bounds history and audit listings.
type ListQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=128"`
}

// handleHistory handles GET /api/history. Entries come newest first.
func (s *APIServer) handleHistory(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if query.Limit == 0 {
		query.Limit = 50
	}

	count := s.gov.HistoryCount()
	if query.Limit < count {
		count = query.Limit
	}
	entries := make([]governor.AuditEntry, 0, count)
	for i := 0; i < count; i++ {
		e, err := s.gov.HistoryGet(i)
		if err != nil {
			break
		}
		entries = append(entries, e)
	}

	Success(c, gin.H{
		"total":   s.gov.HistoryCount(),
		"entries": entries,
	})
}

// RollbackPath binds the rollback index parameter.
type RollbackPath struct {
	Index int `uri:"index" binding:"min=0"`
}

// handleRollback handles POST /api/history/:index/rollback
func (s *APIServer) handleRollback(c *gin.Context) {
	var p RollbackPath
	if err := c.ShouldBindUri(&p); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.gov.Rollback(p.Index); err != nil {
		GovernorError(c, err)
		return
	}

	Success(c, gin.H{"status": "rolled_back", "index": p.Index})
}

// handleAudit handles GET /api/audit. Entries come newest first.
func (s *APIServer) handleAudit(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if query.Limit == 0 {
		query.Limit = 50
	}

	entries := s.gov.AuditRecent(query.Limit)
	if entries == nil {
		entries = []governor.AuditEntry{}
	}

	Success(c, gin.H{
		"total":   s.gov.AuditCount(),
		"entries": entries,
	})
}

// handleGetFlags handles GET /api/flags
func (s *APIServer) handleGetFlags(c *gin.Context) {
	f := s.gov.Flags()
	Success(c, gin.H{
		"flags": f.String(),
		"raw":   uint32(f),
	})
}

// FlagsBody is the request payload for PUT /api/flags
type FlagsBody struct {
	Flags string `json:"flags"`
}

// handleSetFlags handles PUT /api/flags. Unknown flag names are ignored, so
// an empty or bogus list clears every flag.
func (s *APIServer) handleSetFlags(c *gin.Context) {
	var body FlagsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}

	f := governor.ParseFlags(body.Flags)
	s.gov.SetFlags(f)
	Success(c, gin.H{"flags": f.String(), "raw": uint32(f)})
}

// handleListScopes handles GET /api/scopes
func (s *APIServer) handleListScopes(c *gin.Context) {
	scopes := s.gov.Scopes()
	if scopes == nil {
		scopes = []governor.Scope{}
	}
	Success(c, gin.H{"total": len(scopes), "scopes": scopes})
}

// ScopeBody is the request payload for POST /api/scopes
type ScopeBody struct {
	ID         string `json:"id" binding:"required,max=63"`
	Caps       string `json:"caps" binding:"required,caplist"`
	PathGlob   string `json:"path_glob" binding:"required,max=255"`
	MaxBytes   uint64 `json:"max_bytes"`
	TTLSeconds int    `json:"ttl_seconds" binding:"omitempty,min=1,max=31536000"`
}

// handleAddScope handles POST /api/scopes
func (s *APIServer) handleAddScope(c *gin.Context) {
	var body ScopeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}

	scope := governor.Scope{
		ID:       body.ID,
		Caps:     types.ParseCapabilities(body.Caps),
		PathGlob: body.PathGlob,
		MaxBytes: body.MaxBytes,
	}
	if body.TTLSeconds > 0 {
		scope.ValidUntil = time.Now().Add(time.Duration(body.TTLSeconds) * time.Second)
	}

	if err := s.gov.ScopeAdd(scope); err != nil {
		GovernorError(c, err)
		return
	}

	Success(c, gin.H{"status": "added", "id": body.ID})
}

// handleRemoveScope handles DELETE /api/scopes/:id
func (s *APIServer) handleRemoveScope(c *gin.Context) {
	id := c.Param("id")
	if err := s.gov.ScopeRemove(id); err != nil {
		GovernorError(c, err)
		return
	}
	Success(c, gin.H{"status": "removed", "id": id})
}

// handleScopeCleanup handles POST /api/scopes/cleanup
func (s *APIServer) handleScopeCleanup(c *gin.Context) {
	removed := s.gov.ScopeCleanup()
	Success(c, gin.H{"removed": removed})
}

// ScopeCheckBody is the request payload for POST /api/scopes/check
type ScopeCheckBody struct {
	Cap  string `json:"cap" binding:"required"`
	Path string `json:"path"`
	Size uint64 `json:"size"`
}

// handleScopeCheck handles POST /api/scopes/check
func (s *APIServer) handleScopeCheck(c *gin.Context) {
	var body ScopeCheckBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}

	cap := types.ParseCapability(body.Cap)
	if cap == 0 {
		Error(c, http.StatusBadRequest, "Unknown capability")
		return
	}

	Success(c, gin.H{
		"allowed": s.gov.ScopeCheck(cap, body.Path, body.Size),
	})
}

// handleCacheStats handles GET /api/cache
func (s *APIServer) handleCacheStats(c *gin.Context) {
	hits, misses, used := s.gov.CacheStats()
	Success(c, gin.H{
		"hits":   hits,
		"misses": misses,
		"used":   used,
	})
}

// handleCacheClear handles POST /api/cache/clear
func (s *APIServer) handleCacheClear(c *gin.Context) {
	s.gov.CacheClear()
	Success(c, gin.H{"status": "cleared"})
}

// handleCacheInvalidate handles DELETE /api/cache/:fingerprint
func (s *APIServer) handleCacheInvalidate(c *gin.Context) {
	fp, ok := scan.ParseFingerprint(c.Param("fingerprint"))
	if !ok {
		Error(c, http.StatusBadRequest, "Bad fingerprint")
		return
	}

	Success(c, gin.H{"invalidated": s.gov.CacheInvalidate(fp)})
}

// TelemetryQuery bounds telemetry listings.
type TelemetryQuery struct {
	Minutes int `form:"minutes" binding:"omitempty,min=1,max=10080"` // max 7 days
	Limit   int `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// handleTelemetryRecent handles GET /api/telemetry/recent
func (s *APIServer) handleTelemetryRecent(c *gin.Context) {
	var query TelemetryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if query.Minutes == 0 {
		query.Minutes = 60
	}
	if query.Limit == 0 {
		query.Limit = 100
	}

	entries, err := s.storage.GetRecent(query.Minutes, query.Limit)
	if err != nil {
		Error(c, http.StatusInternalServerError, "Failed to read telemetry")
		return
	}
	if entries == nil {
		entries = []telemetry.StoredEntry{}
	}

	Success(c, entries)
}

// handleTelemetryFingerprint handles GET /api/telemetry/fingerprint/:fingerprint
func (s *APIServer) handleTelemetryFingerprint(c *gin.Context) {
	fingerprint := c.Param("fingerprint")
	if _, ok := scan.ParseFingerprint(fingerprint); !ok {
		Error(c, http.StatusBadRequest, "Bad fingerprint")
		return
	}

	entries, err := s.storage.GetByFingerprint(fingerprint, 100)
	if err != nil {
		Error(c, http.StatusInternalServerError, "Failed to read telemetry")
		return
	}
	if len(entries) == 0 {
		Error(c, http.StatusNotFound, "No entries for fingerprint")
		return
	}

	Success(c, entries)
}

// handleTelemetryPolicies handles GET /api/telemetry/policies
func (s *APIServer) handleTelemetryPolicies(c *gin.Context) {
	counts, err := s.storage.CountByPolicy()
	if err != nil {
		Error(c, http.StatusInternalServerError, "Failed to aggregate telemetry")
		return
	}
	if counts == nil {
		counts = []telemetry.PolicyCount{}
	}
	Success(c, counts)
}

// ExportBody is the request payload for POST /api/telemetry/export
type ExportBody struct {
	Dir     string `json:"dir" binding:"required"`
	Minutes int    `json:"minutes" binding:"omitempty,min=1,max=10080"`
}

// handleTelemetryExport handles POST /api/telemetry/export
func (s *APIServer) handleTelemetryExport(c *gin.Context) {
	var body ExportBody
	if err := c.ShouldBindJSON(&body); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if body.Minutes == 0 {
		body.Minutes = 1440
	}

	path, err := s.storage.Export(body.Dir, body.Minutes)
	if err != nil {
		Error(c, http.StatusInternalServerError, "Export failed")
		return
	}

	Success(c, gin.H{"path": path})
}
