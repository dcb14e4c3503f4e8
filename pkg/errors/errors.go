package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	grpccodes "google.golang.org/grpc/codes"
)

// Code is the type representing a namespace error code.
type Code[MT any] struct {
	Code     uint16
	Name     string
	GrpcCode grpccodes.Code
}

// New creates a new error with the given code and the message
func (c Code[MT]) New(msg string, args ...any) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: fmt.Errorf(msg, args...),
	}
}

// Wrap creates a new Error with the given code and the cause error
func (c Code[MT]) Wrap(cause error) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: cause,
	}
}

func (c Code[MT]) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.Code)
}

// Is reports whether err carries this code, anywhere in its chain.
func (c Code[MT]) Is(err error) bool {
	var structured Error
	if !stderrors.As(err, &structured) {
		return false
	}
	return structured.Code() == c.Code
}

type Error interface {
	error
	Log() *log.Entry
	Code() uint16
	CodeName() string
	GrpcCode() grpccodes.Code
	Metadata() map[string]string
}

type TypedError[MT any] interface {
	Error
	WithMetadata(MT) TypedError[MT]
}

// ErrorImpl is the default concrete implementation of TypedError.
type ErrorImpl[MT any] struct {
	code     Code[MT]
	cause    error
	metadata MT
}

func (e *ErrorImpl[MT]) Log() *log.Entry {
	return log.WithField("name", e.code.Name).
		WithField("code", e.code.Code).
		WithField("metadata", e.metadata)
}

func (e *ErrorImpl[MT]) Metadata() map[string]string {
	// convert any metadata to map[string]string
	metadata := make(map[string]string)
	buf, err := json.Marshal(e.metadata)
	if err == nil {
		var genericMap map[string]any
		if err := json.Unmarshal(buf, &genericMap); err == nil {
			for k, v := range genericMap {
				vStr := ""
				if v != nil {
					vStr = fmt.Sprintf("%v", v)
				}
				metadata[k] = vStr
			}
		}
	}
	return metadata
}

func (e *ErrorImpl[MT]) GrpcCode() grpccodes.Code {
	return e.code.GrpcCode
}

func (e *ErrorImpl[MT]) Code() uint16 {
	return e.code.Code
}

func (e *ErrorImpl[MT]) CodeName() string {
	return e.code.Name
}

// Error() implements the error interface.
func (e *ErrorImpl[MT]) Error() string {
	return fmt.Sprintf("%s: %s", e.code.String(), e.cause.Error())
}

func (e *ErrorImpl[MT]) Unwrap() error {
	return e.cause
}

func (e *ErrorImpl[MT]) WithMetadata(metadata MT) TypedError[MT] {
	e.metadata = metadata
	return e
}

type AmountMetadata struct {
	Asset     string `json:"asset"`
	Requested uint64 `json:"requested"`
	Available uint64 `json:"available"`
}

type RecordMetadata struct {
	Depositor string `json:"depositor"`
	Index     uint64 `json:"index"`
	RecordId  uint64 `json:"record_id,omitempty"`
}

type TooEarlyMetadata struct {
	RecordId   uint64 `json:"record_id"`
	UnlockTime int64  `json:"unlock_time"`
	Now        int64  `json:"now"`
}

type TransferMetadata struct {
	Asset     string `json:"asset"`
	Direction string `json:"direction"`
	Holder    string `json:"holder"`
	Amount    uint64 `json:"amount"`
}

type CallerMetadata struct {
	Caller string `json:"caller"`
}

var INTERNAL_ERROR = Code[map[string]any]{0, "INTERNAL_ERROR", grpccodes.Internal}
var INVALID_ARGUMENT = Code[map[string]any]{1, "INVALID_ARGUMENT", grpccodes.InvalidArgument}
var EMPTY_DEPOSIT = Code[any]{2, "EMPTY_DEPOSIT", grpccodes.InvalidArgument}

var INSUFFICIENT_FUNDS = Code[AmountMetadata]{
	3,
	"INSUFFICIENT_FUNDS",
	grpccodes.FailedPrecondition,
}
var TRANSFER_FAILED = Code[TransferMetadata]{4, "TRANSFER_FAILED", grpccodes.Aborted}
var NO_SUCH_RECORD = Code[RecordMetadata]{5, "NO_SUCH_RECORD", grpccodes.NotFound}

var ALREADY_RELEASED = Code[RecordMetadata]{
	6,
	"ALREADY_RELEASED",
	grpccodes.FailedPrecondition,
}
var TOO_EARLY = Code[TooEarlyMetadata]{7, "TOO_EARLY", grpccodes.FailedPrecondition}
var NOT_AUTHORIZED = Code[CallerMetadata]{8, "NOT_AUTHORIZED", grpccodes.PermissionDenied}

var EXCEEDS_ENTITLEMENT = Code[AmountMetadata]{
	9,
	"EXCEEDS_ENTITLEMENT",
	grpccodes.FailedPrecondition,
}

var INSUFFICIENT_LIQUIDITY = Code[AmountMetadata]{
	10,
	"INSUFFICIENT_LIQUIDITY",
	grpccodes.FailedPrecondition,
}
