// Package models defines the JSON types shared between the API handlers and
// their clients.
package models

// DepositRequest is the body of POST /api/deposit.
type DepositRequest struct {
	Account     string `json:"account"`
	Amount      uint64 `json:"amount"`
	Destination string `json:"destination"`
}

// WithdrawRequest is the body of POST /api/withdraw.
type WithdrawRequest struct {
	Account     string `json:"account"`
	Amount      uint64 `json:"amount"`
	Destination string `json:"destination"`
}

// ClaimRequest is the body of POST /api/claim.
type ClaimRequest struct {
	Account     string `json:"account"`
	Destination string `json:"destination"`
}

// ClaimResponse reports the sale tokens delivered by a claim.
type ClaimResponse struct {
	Claimed uint64 `json:"claimed"`
}

// WithdrawResponse reports the deposit value delivered by a withdrawal.
type WithdrawResponse struct {
	Delivered uint64 `json:"delivered"`
}

// AdminWithdrawRequest is the body of POST /api/admin/withdraw.
// Amount zero withdraws the full custody balance.
type AdminWithdrawRequest struct {
	Destination string `json:"destination"`
	Amount      uint64 `json:"amount,omitempty"`
}

// SetTGERequest is the body of POST /api/admin/tge.
type SetTGERequest struct {
	TGE int64 `json:"tge"`
}

// SetLockRequest is the body of POST /api/admin/lock.
type SetLockRequest struct {
	Locked bool `json:"locked"`
}

// WhitelistRequest is the body of POST /api/admin/whitelist.
type WhitelistRequest struct {
	Phase    uint16   `json:"phase"`
	Accounts []string `json:"accounts"`
}

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Data interface{} `json:"data,omitempty"`
	Meta *APIMeta    `json:"meta,omitempty"`
}

// APIMeta contains execution metadata.
type APIMeta struct {
	ExecutionTime int64 `json:"executionTime,omitempty"`
}

// APIError is the standard error response.
type APIError struct {
	Error APIErrorDetail `json:"error"`
}

// APIErrorDetail contains error code and message.
type APIErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
