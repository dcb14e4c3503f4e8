package lockdv1

import "encoding/json"

// Amounts are encoded as decimal strings so that JSON clients never lose
// precision on 64-bit values.

type TokenAmount struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount,string"`
}

type AssetAmount struct {
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount,string"`
}

type Record struct {
	Id              uint64        `json:"id,string"`
	Depositor       string        `json:"depositor"`
	Index           uint64        `json:"index,string"`
	NativeAmount    uint64        `json:"native_amount,string"`
	Tokens          []TokenAmount `json:"tokens"`
	DurationSeconds int64         `json:"duration_seconds,string"`
	CreatedAt       int64         `json:"created_at,string"`
	UnlockTime      int64         `json:"unlock_time,string"`
	Released        bool          `json:"released"`
	ReleasedAt      int64         `json:"released_at,string,omitempty"`
}

type Event struct {
	Id        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp,string"`
	Data      json.RawMessage `json:"data"`
}

type LockRequest struct {
	Tokens          []TokenAmount `json:"tokens,omitempty"`
	DurationSeconds int64         `json:"duration_seconds,string"`
	NativeValue     uint64        `json:"native_value,string"`
}

type LockResponse struct {
	RecordId uint64 `json:"record_id,string"`
}

type UnlockRequest struct {
	Index uint64 `json:"index,string"`
}

type UnlockResponse struct {
	RecordId uint64        `json:"record_id,string"`
	Payouts  []AssetAmount `json:"payouts"`
}

type WithdrawRequest struct {
	NativeAmount uint64        `json:"native_amount,string"`
	Tokens       []TokenAmount `json:"tokens,omitempty"`
}

type WithdrawResponse struct {
	Amounts []AssetAmount `json:"amounts"`
}

type GetInfoRequest struct{}

type GetInfoResponse struct {
	Version      string        `json:"version"`
	Owner        string        `json:"owner"`
	FeePercent   uint32        `json:"fee_percent"`
	TotalRecords uint64        `json:"total_records,string"`
	Custody      string        `json:"custody"`
	FeePools     []AssetAmount `json:"fee_pools"`
	CreatedAt    int64         `json:"created_at,string"`
}

type GetRecordRequest struct {
	Depositor string `json:"depositor"`
	Index     uint64 `json:"index,string"`
}

type GetRecordResponse struct {
	Record *Record `json:"record"`
}

type ListRecordsRequest struct {
	Depositor string `json:"depositor"`
}

type ListRecordsResponse struct {
	Records []*Record `json:"records"`
}

type GetFeePoolRequest struct {
	Asset string `json:"asset"`
}

type GetFeePoolResponse struct {
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount,string"`
}

type GetRecordHistoryRequest struct {
	RecordId uint64 `json:"record_id,string"`
}

type GetRecordHistoryResponse struct {
	Events []*Event `json:"events"`
}
