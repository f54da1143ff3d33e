package rest

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/core"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/domain"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// ListGauges returns every registered gauge, active and deprecated
	// GET /api/v1/gauges
	ListGauges(c *gin.Context)

	// GetGauge returns a single gauge with its live and stored weights
	// GET /api/v1/gauges/:address
	GetGauge(c *gin.Context)

	// AddGauge registers or reactivates a gauge (requires authentication)
	// POST /api/v1/gauges
	AddGauge(c *gin.Context)

	// RemoveGauge deprecates a gauge (requires authentication)
	// DELETE /api/v1/gauges/:address
	RemoveGauge(c *gin.Context)

	// SetMaxGauges updates the per-user gauge cap (requires authentication)
	// PUT /api/v1/config/max-gauges
	SetMaxGauges(c *gin.Context)

	// GetMaxGauges returns the current per-user gauge cap
	// GET /api/v1/config/max-gauges
	GetMaxGauges(c *gin.Context)

	// SetExemption flags a user exempt from the gauge cap (requires authentication)
	// PUT /api/v1/users/:address/exemption
	SetExemption(c *gin.Context)

	// IncrementWeights adds weight to one or more gauges for a user
	// POST /api/v1/users/:address/weights/increment
	IncrementWeights(c *gin.Context)

	// DecrementWeights removes weight from one or more gauges for a user
	// POST /api/v1/users/:address/weights/decrement
	DecrementWeights(c *gin.Context)

	// GetUserWeights returns a user's non-zero weights and totals
	// GET /api/v1/users/:address/weights
	GetUserWeights(c *gin.Context)

	// ReportLoss marks a loss event on a gauge (requires authentication)
	// POST /api/v1/gauges/:address/loss
	ReportLoss(c *gin.Context)

	// ApplyLoss socializes a reported loss onto one staked user (open,
	// anyone may unblock a stale position)
	// POST /api/v1/gauges/:address/loss/apply
	ApplyLoss(c *gin.Context)

	// GetAllocation returns a gauge's proportional share of a total amount
	// GET /api/v1/allocations?gauge=<address>&total=<amount>&stored=<bool>
	GetAllocation(c *gin.Context)

	// GetBalance returns a user's balance
	// GET /api/v1/balances/:address
	GetBalance(c *gin.Context)

	// Mint credits balance to a user (requires authentication)
	// POST /api/v1/balances/mint
	Mint(c *gin.Context)

	// Burn debits balance from a user (requires authentication)
	// POST /api/v1/balances/burn
	Burn(c *gin.Context)

	// Transfer moves balance between users
	// POST /api/v1/balances/transfer
	Transfer(c *gin.Context)

	// Approve grants a spender allowance over an owner's balance
	// POST /api/v1/balances/approve
	Approve(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	guild *core.Guild
}

// NewHandler creates a new REST API handler over the gauge ledger
func NewHandler(guild *core.Guild) Handler {
	return &handler{
		guild: guild,
	}
}

// paramAddress parses the :address path parameter
func paramAddress(c *gin.Context) (common.Address, bool) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		respondBadRequest(c, "Invalid address")
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

// ListGauges returns every registered gauge, active and deprecated
func (h *handler) ListGauges(c *gin.Context) {
	gauges := h.guild.Gauges()

	response := make([]GaugeResponse, 0, len(gauges))
	for _, g := range gauges {
		response = append(response, toGaugeResponse(g,
			h.guild.GaugeWeight(g.Address),
			h.guild.StoredGaugeWeight(g.Address),
		))
	}

	c.JSON(http.StatusOK, gin.H{"gauges": response})
}

// GetGauge returns a single gauge with its live and stored weights
func (h *handler) GetGauge(c *gin.Context) {
	address, ok := paramAddress(c)
	if !ok {
		return
	}

	gauge, found := h.guild.Gauge(address)
	if !found {
		respondNotFound(c, "Gauge not found")
		return
	}

	c.JSON(http.StatusOK, toGaugeResponse(gauge,
		h.guild.GaugeWeight(address),
		h.guild.StoredGaugeWeight(address),
	))
}

// AddGauge registers or reactivates a gauge
func (h *handler) AddGauge(c *gin.Context) {
	var req AddGaugeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	gauge, err := h.guild.AddGauge(domain.GaugeType(req.GaugeType), common.HexToAddress(req.Address))
	if err != nil {
		respondDomainError(c, err, "Failed to add gauge")
		return
	}

	c.JSON(http.StatusCreated, toGaugeResponse(gauge, 0, 0))
}

// RemoveGauge deprecates a gauge
func (h *handler) RemoveGauge(c *gin.Context) {
	address, ok := paramAddress(c)
	if !ok {
		return
	}

	gauge, err := h.guild.RemoveGauge(address)
	if err != nil {
		respondDomainError(c, err, "Failed to remove gauge")
		return
	}

	c.JSON(http.StatusOK, toGaugeResponse(gauge,
		h.guild.GaugeWeight(address),
		h.guild.StoredGaugeWeight(address),
	))
}

// SetMaxGauges updates the per-user gauge cap
func (h *handler) SetMaxGauges(c *gin.Context) {
	var req MaxGaugesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	h.guild.SetMaxGauges(req.MaxGauges)

	c.JSON(http.StatusOK, MaxGaugesResponse{MaxGauges: h.guild.MaxGauges()})
}

// GetMaxGauges returns the current per-user gauge cap
func (h *handler) GetMaxGauges(c *gin.Context) {
	c.JSON(http.StatusOK, MaxGaugesResponse{MaxGauges: h.guild.MaxGauges()})
}

// SetExemption flags a user exempt from the gauge cap
func (h *handler) SetExemption(c *gin.Context) {
	address, ok := paramAddress(c)
	if !ok {
		return
	}

	var req ExemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := h.guild.SetExempt(address, req.Exempt); err != nil {
		respondDomainError(c, err, "Failed to update exemption")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":   address.Hex(),
		"exempt": req.Exempt,
	})
}

// IncrementWeights adds weight to one or more gauges for a user
func (h *handler) IncrementWeights(c *gin.Context) {
	address, ok := paramAddress(c)
	if !ok {
		return
	}

	var req WeightChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	total, err := h.guild.IncrementWeights(address, req.GaugeAddresses(), req.Amounts)
	if err != nil {
		respondDomainError(c, err, "Failed to increment weights")
		return
	}

	c.JSON(http.StatusOK, WeightChangeResponse{
		User:        address.Hex(),
		TotalWeight: total,
	})
}

// DecrementWeights removes weight from one or more gauges for a user
func (h *handler) DecrementWeights(c *gin.Context) {
	address, ok := paramAddress(c)
	if !ok {
		return
	}

	var req WeightChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	total, err := h.guild.DecrementWeights(address, req.GaugeAddresses(), req.Amounts)
	if err != nil {
		respondDomainError(c, err, "Failed to decrement weights")
		return
	}

	c.JSON(http.StatusOK, WeightChangeResponse{
		User:        address.Hex(),
		TotalWeight: total,
	})
}

// GetUserWeights returns a user's non-zero weights and totals
func (h *handler) GetUserWeights(c *gin.Context) {
	address, ok := paramAddress(c)
	if !ok {
		return
	}

	entries := h.guild.UserWeights(address)
	weights := make([]WeightEntryResponse, 0, len(entries))
	for _, e := range entries {
		weights = append(weights, WeightEntryResponse{
			Gauge:  e.Gauge.Hex(),
			Weight: e.Weight,
		})
	}

	c.JSON(http.StatusOK, UserWeightsResponse{
		User:        address.Hex(),
		TotalWeight: h.guild.UserTotalWeight(address),
		Balance:     h.guild.BalanceOf(address),
		Exempt:      h.guild.IsExempt(address),
		Weights:     weights,
	})
}

// ReportLoss marks a loss event on a gauge
func (h *handler) ReportLoss(c *gin.Context) {
	address, ok := paramAddress(c)
	if !ok {
		return
	}

	if err := h.guild.ReportLoss(address); err != nil {
		respondDomainError(c, err, "Failed to report loss")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"gauge": address.Hex()})
}

// ApplyLoss socializes a reported loss onto one staked user
func (h *handler) ApplyLoss(c *gin.Context) {
	address, ok := paramAddress(c)
	if !ok {
		return
	}

	var req ApplyLossRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	user := common.HexToAddress(req.User)
	slashed, err := h.guild.ApplyLoss(address, user)
	if err != nil {
		respondDomainError(c, err, "Failed to apply loss")
		return
	}

	c.JSON(http.StatusOK, ApplyLossResponse{
		Gauge:   address.Hex(),
		User:    user.Hex(),
		Slashed: slashed,
	})
}

// GetAllocation returns a gauge's proportional share of a total amount
func (h *handler) GetAllocation(c *gin.Context) {
	rawGauge := c.Query("gauge")
	if !common.IsHexAddress(rawGauge) {
		respondBadRequest(c, "gauge must be a hex address")
		return
	}
	gauge := common.HexToAddress(rawGauge)

	total, err := strconv.ParseUint(c.Query("total"), 10, 64)
	if err != nil {
		respondBadRequest(c, "total must be an unsigned integer")
		return
	}

	stored := c.Query("stored") == "true"

	var allocation uint64
	if stored {
		allocation = h.guild.CalculateStoredAllocation(gauge, total)
	} else {
		allocation = h.guild.CalculateAllocation(gauge, total)
	}

	c.JSON(http.StatusOK, AllocationResponse{
		Gauge:       gauge.Hex(),
		TotalAmount: total,
		Allocation:  allocation,
		Stored:      stored,
	})
}

// GetBalance returns a user's balance
func (h *handler) GetBalance(c *gin.Context) {
	address, ok := paramAddress(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{
		Address: address.Hex(),
		Balance: h.guild.BalanceOf(address),
	})
}

// Mint credits balance to a user
func (h *handler) Mint(c *gin.Context) {
	var req MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	to := common.HexToAddress(req.To)
	if err := h.guild.Mint(to, req.Amount); err != nil {
		respondDomainError(c, err, "Failed to mint")
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{
		Address: to.Hex(),
		Balance: h.guild.BalanceOf(to),
	})
}

// Burn debits balance from a user
func (h *handler) Burn(c *gin.Context) {
	var req BurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	from := common.HexToAddress(req.From)
	if err := h.guild.Burn(from, req.Amount); err != nil {
		respondDomainError(c, err, "Failed to burn")
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{
		Address: from.Hex(),
		Balance: h.guild.BalanceOf(from),
	})
}

// Transfer moves balance between users
func (h *handler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	from := common.HexToAddress(req.From)
	to := common.HexToAddress(req.To)

	var err error
	if req.Spender != "" {
		err = h.guild.TransferFrom(common.HexToAddress(req.Spender), from, to, req.Amount)
	} else {
		err = h.guild.Transfer(from, to, req.Amount)
	}
	if err != nil {
		respondDomainError(c, err, "Failed to transfer")
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{
		Address: from.Hex(),
		Balance: h.guild.BalanceOf(from),
	})
}

// Approve grants a spender allowance over an owner's balance
func (h *handler) Approve(c *gin.Context) {
	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	owner := common.HexToAddress(req.Owner)
	spender := common.HexToAddress(req.Spender)
	h.guild.Approve(owner, spender, req.Amount)

	c.JSON(http.StatusOK, gin.H{
		"owner":     owner.Hex(),
		"spender":   spender.Hex(),
		"allowance": h.guild.Allowance(owner, spender),
	})
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "credit-guild-api",
	})
}
