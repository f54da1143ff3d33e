package rest

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/domain"
)

// AddGaugeRequest is the body for registering a gauge
type AddGaugeRequest struct {
	Address   string `json:"address" binding:"required"`
	GaugeType string `json:"gauge_type" binding:"required"`
}

// Validate validates the request body
func (r *AddGaugeRequest) Validate() error {
	if !common.IsHexAddress(r.Address) {
		return errors.New("address must be a hex address")
	}
	if r.GaugeType == "" {
		return errors.New("gauge_type is required")
	}
	return nil
}

// MaxGaugesRequest is the body for updating the per-user gauge cap
type MaxGaugesRequest struct {
	MaxGauges int `json:"max_gauges" binding:"required"`
}

// Validate validates the request body
func (r *MaxGaugesRequest) Validate() error {
	if r.MaxGauges < 0 {
		return errors.New("max_gauges must not be negative")
	}
	return nil
}

// ExemptionRequest is the body for flagging a user exempt from the gauge cap
type ExemptionRequest struct {
	Exempt bool `json:"exempt"`
}

// WeightChangeRequest is the body for incrementing or decrementing weights.
// A single-gauge change is a batch of one.
type WeightChangeRequest struct {
	Gauges  []string `json:"gauges" binding:"required"`
	Amounts []uint64 `json:"amounts" binding:"required"`
}

// Validate validates the request body
func (r *WeightChangeRequest) Validate() error {
	if len(r.Gauges) == 0 {
		return errors.New("gauges must not be empty")
	}
	for _, g := range r.Gauges {
		if !common.IsHexAddress(g) {
			return errors.New("gauges must contain hex addresses")
		}
	}
	return nil
}

// GaugeAddresses converts the gauge strings to addresses.
// Validate must have succeeded first.
func (r *WeightChangeRequest) GaugeAddresses() []common.Address {
	addrs := make([]common.Address, len(r.Gauges))
	for i, g := range r.Gauges {
		addrs[i] = common.HexToAddress(g)
	}
	return addrs
}

// ApplyLossRequest is the body for socializing a reported loss onto a user
type ApplyLossRequest struct {
	User string `json:"user" binding:"required"`
}

// Validate validates the request body
func (r *ApplyLossRequest) Validate() error {
	if !common.IsHexAddress(r.User) {
		return errors.New("user must be a hex address")
	}
	return nil
}

// MintRequest is the body for minting balance
type MintRequest struct {
	To     string `json:"to" binding:"required"`
	Amount uint64 `json:"amount" binding:"required"`
}

// Validate validates the request body
func (r *MintRequest) Validate() error {
	if !common.IsHexAddress(r.To) {
		return errors.New("to must be a hex address")
	}
	return nil
}

// BurnRequest is the body for burning balance
type BurnRequest struct {
	From   string `json:"from" binding:"required"`
	Amount uint64 `json:"amount" binding:"required"`
}

// Validate validates the request body
func (r *BurnRequest) Validate() error {
	if !common.IsHexAddress(r.From) {
		return errors.New("from must be a hex address")
	}
	return nil
}

// TransferRequest is the body for transferring balance. Spender is set for
// allowance-backed transfers.
type TransferRequest struct {
	From    string `json:"from" binding:"required"`
	To      string `json:"to" binding:"required"`
	Amount  uint64 `json:"amount" binding:"required"`
	Spender string `json:"spender,omitempty"`
}

// Validate validates the request body
func (r *TransferRequest) Validate() error {
	if !common.IsHexAddress(r.From) {
		return errors.New("from must be a hex address")
	}
	if !common.IsHexAddress(r.To) {
		return errors.New("to must be a hex address")
	}
	if r.Spender != "" && !common.IsHexAddress(r.Spender) {
		return errors.New("spender must be a hex address")
	}
	return nil
}

// ApproveRequest is the body for granting an allowance
type ApproveRequest struct {
	Owner   string `json:"owner" binding:"required"`
	Spender string `json:"spender" binding:"required"`
	Amount  uint64 `json:"amount"`
}

// Validate validates the request body
func (r *ApproveRequest) Validate() error {
	if !common.IsHexAddress(r.Owner) {
		return errors.New("owner must be a hex address")
	}
	if !common.IsHexAddress(r.Spender) {
		return errors.New("spender must be a hex address")
	}
	return nil
}

// GaugeResponse describes a registered gauge with its current weights
type GaugeResponse struct {
	Address      string    `json:"address"`
	GaugeType    string    `json:"gauge_type"`
	Status       string    `json:"status"`
	Weight       uint64    `json:"weight"`
	StoredWeight uint64    `json:"stored_weight"`
	AddedAt      time.Time `json:"added_at"`
}

// WeightEntryResponse is one user-gauge weight row
type WeightEntryResponse struct {
	Gauge  string `json:"gauge"`
	Weight uint64 `json:"weight"`
}

// UserWeightsResponse lists a user's non-zero weights
type UserWeightsResponse struct {
	User        string                `json:"user"`
	TotalWeight uint64                `json:"total_weight"`
	Balance     uint64                `json:"balance"`
	Exempt      bool                  `json:"exempt"`
	Weights     []WeightEntryResponse `json:"weights"`
}

// WeightChangeResponse reports the user's total weight after a change
type WeightChangeResponse struct {
	User        string `json:"user"`
	TotalWeight uint64 `json:"total_weight"`
}

// AllocationResponse reports a gauge's proportional share of a total amount
type AllocationResponse struct {
	Gauge       string `json:"gauge"`
	TotalAmount uint64 `json:"total_amount"`
	Allocation  uint64 `json:"allocation"`
	Stored      bool   `json:"stored"`
}

// BalanceResponse reports a user's balance
type BalanceResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

// ApplyLossResponse reports the amount slashed from a user
type ApplyLossResponse struct {
	Gauge   string `json:"gauge"`
	User    string `json:"user"`
	Slashed uint64 `json:"slashed"`
}

// MaxGaugesResponse reports the current gauge cap
type MaxGaugesResponse struct {
	MaxGauges int `json:"max_gauges"`
}

// toGaugeResponse converts a domain gauge plus weights to the response shape
func toGaugeResponse(g domain.Gauge, weight, storedWeight uint64) GaugeResponse {
	return GaugeResponse{
		Address:      g.Address.Hex(),
		GaugeType:    string(g.Type),
		Status:       string(g.Status),
		Weight:       weight,
		StoredWeight: storedWeight,
		AddedAt:      g.AddedAt,
	}
}
