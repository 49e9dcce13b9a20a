package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Olexandr88/indexreg/internal/observability"
	"github.com/Olexandr88/indexreg/internal/registry"
)

type registerRequest struct {
	Operator string  `json:"operator"`
	Quorums  []uint8 `json:"quorums"`
	Block    uint64  `json:"block"`
}

type deregisterRequest struct {
	Operator      string   `json:"operator"`
	Complete      bool     `json:"complete"`
	Quorums       []uint8  `json:"quorums"`
	SwapOperators []string `json:"swap_operators"`
	GlobalIndex   uint32   `json:"global_index"`
	Block         uint64   `json:"block"`
}

type quorumStatus struct {
	Quorum        uint8  `json:"quorum"`
	Size          uint32 `json:"size"`
	HistoryLength uint32 `json:"history_length"`
}

func (s *Service) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"service": "indexreg-api",
			"version": "0.1.0",
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"uptime": time.Since(s.started).String(),
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1")

	mutate := v1.Group("", s.authMiddleware())
	mutate.POST("/operators/register", s.handleRegister)
	mutate.POST("/operators/deregister", s.handleDeregister)

	v1.GET("/operators/:id/index", s.handleIndexAt)
	v1.GET("/operators/:id/global-index", s.handleGlobalIndex)
	v1.GET("/quorums/:quorum/size", s.handleSizeAt)
	v1.GET("/quorums/:quorum/operators", s.handleCurrentMembers)
	v1.GET("/status", s.handleStatus)
}

func (s *Service) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	op, err := registry.OperatorIDFromHex(req.Operator)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quorums := toQuorums(req.Quorums)
	block := registry.BlockNumber(req.Block)

	if err := s.registry.RegisterOperator(op, quorums, block); err != nil {
		observability.RecordRegistration(false)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	observability.RecordRegistration(true)
	observability.SetGlobalOperators(s.registry.TotalOperators())

	seq, err := s.journal.AppendRegister(op, quorums, block)
	if err != nil {
		s.logger.Error().Err(err).Str("operator", op.String()).Msg("journal_append_failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mutation applied but not journaled"})
		return
	}
	observability.RecordJournalAppend()

	c.JSON(http.StatusOK, gin.H{
		"status":   "registered",
		"operator": op.String(),
		"seq":      seq,
	})
}

func (s *Service) handleDeregister(c *gin.Context) {
	var req deregisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	op, err := registry.OperatorIDFromHex(req.Operator)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	swaps := make([]registry.OperatorID, 0, len(req.SwapOperators))
	for _, raw := range req.SwapOperators {
		swap, err := registry.OperatorIDFromHex(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		swaps = append(swaps, swap)
	}
	quorums := toQuorums(req.Quorums)
	block := registry.BlockNumber(req.Block)

	if err := s.registry.DeregisterOperator(op, req.Complete, quorums, swaps, req.GlobalIndex, block); err != nil {
		observability.RecordDeregistration(false)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	observability.RecordDeregistration(true)
	observability.SetGlobalOperators(s.registry.TotalOperators())

	seq, err := s.journal.AppendDeregister(op, req.Complete, quorums, swaps, req.GlobalIndex, block)
	if err != nil {
		s.logger.Error().Err(err).Str("operator", op.String()).Msg("journal_append_failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mutation applied but not journaled"})
		return
	}
	observability.RecordJournalAppend()

	c.JSON(http.StatusOK, gin.H{
		"status":   "deregistered",
		"operator": op.String(),
		"complete": req.Complete,
		"seq":      seq,
	})
}

func (s *Service) handleIndexAt(c *gin.Context) {
	op, err := registry.OperatorIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quorum, ok := quorumQueryParam(c, "quorum")
	if !ok {
		return
	}
	block, ok := uintQueryParam(c, "block", 64)
	if !ok {
		return
	}
	hint, ok := uintQueryParam(c, "hint", 32)
	if !ok {
		return
	}

	index, err := s.registry.IndexAt(op, quorum, registry.BlockNumber(block), uint32(hint))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"operator": op.String(),
		"quorum":   uint8(quorum),
		"block":    block,
		"index":    index,
	})
}

func (s *Service) handleSizeAt(c *gin.Context) {
	quorum, ok := quorumPathParam(c)
	if !ok {
		return
	}
	block, ok := uintQueryParam(c, "block", 64)
	if !ok {
		return
	}
	hint, ok := uintQueryParam(c, "hint", 32)
	if !ok {
		return
	}

	size, err := s.registry.SizeAt(quorum, registry.BlockNumber(block), uint32(hint))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"quorum": uint8(quorum),
		"block":  block,
		"size":   size,
	})
}

func (s *Service) handleCurrentMembers(c *gin.Context) {
	quorum, ok := quorumPathParam(c)
	if !ok {
		return
	}
	members := s.registry.CurrentMembers(quorum)
	out := make([]string, len(members))
	for i, op := range members {
		out[i] = op.String()
	}
	c.JSON(http.StatusOK, gin.H{
		"quorum":    uint8(quorum),
		"size":      len(out),
		"operators": out,
	})
}

func (s *Service) handleGlobalIndex(c *gin.Context) {
	op, err := registry.OperatorIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	index, err := s.registry.GlobalIndexOf(op)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"operator":     op.String(),
		"global_index": index,
	})
}

func (s *Service) handleStatus(c *gin.Context) {
	quorums := s.registry.Quorums()
	statuses := make([]quorumStatus, 0, len(quorums))
	for _, q := range quorums {
		statuses = append(statuses, quorumStatus{
			Quorum:        uint8(q),
			Size:          s.registry.TotalOperatorsForQuorum(q),
			HistoryLength: s.registry.SizeHistoryLength(q),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"total_operators": s.registry.TotalOperators(),
		"last_block":      uint64(s.registry.LastBlock()),
		"journal_records": s.journal.Len(),
		"quorums":         statuses,
	})
}

// statusFor maps registry failures onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrDuplicateOperator),
		errors.Is(err, registry.ErrInvalidSwapCandidate),
		errors.Is(err, registry.ErrGlobalIndexMismatch):
		return http.StatusConflict
	case errors.Is(err, registry.ErrOutOfRangeLookup),
		errors.Is(err, registry.ErrIndexOutOfBounds):
		return http.StatusRequestedRangeNotSatisfiable
	case errors.Is(err, registry.ErrLengthMismatch),
		errors.Is(err, registry.ErrInvalidQuorums),
		errors.Is(err, registry.ErrStaleBlock),
		errors.Is(err, registry.ErrInvalidBlock):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func toQuorums(raw []uint8) []registry.QuorumNumber {
	out := make([]registry.QuorumNumber, len(raw))
	for i, q := range raw {
		out[i] = registry.QuorumNumber(q)
	}
	return out
}

func quorumPathParam(c *gin.Context) (registry.QuorumNumber, bool) {
	v, err := strconv.ParseUint(c.Param("quorum"), 10, 8)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quorum number"})
		return 0, false
	}
	return registry.QuorumNumber(v), true
}

func quorumQueryParam(c *gin.Context, name string) (registry.QuorumNumber, bool) {
	v, err := strconv.ParseUint(c.Query(name), 10, 8)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quorum number"})
		return 0, false
	}
	return registry.QuorumNumber(v), true
}

func uintQueryParam(c *gin.Context, name string, bits int) (uint64, bool) {
	v, err := strconv.ParseUint(c.Query(name), 10, bits)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + " parameter"})
		return 0, false
	}
	return v, true
}
