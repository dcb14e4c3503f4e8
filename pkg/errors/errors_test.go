package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	grpccodes "google.golang.org/grpc/codes"
)

// generateErrorFixtures creates test fixtures with sample metadata for each error type
func generateErrorFixtures() []Error {
	return []Error{
		INTERNAL_ERROR.New("failed to persist ledger").
			WithMetadata(map[string]any{
				"component": "database",
				"operation": "apply",
			}),

		INVALID_ARGUMENT.New("fee percent must be in range [0, 100]").
			WithMetadata(map[string]any{"fee_percent": 101}),

		EMPTY_DEPOSIT.New("submitted 0 token or native value"),

		INSUFFICIENT_FUNDS.New("not enough native balance").
			WithMetadata(AmountMetadata{
				Asset:     "0x0000000000000000000000000000000000000000",
				Requested: 1000,
				Available: 10,
			}),

		TRANSFER_FAILED.New("insufficient balance").
			WithMetadata(TransferMetadata{
				Asset:     "0x5FbDB2315678afecb367f032d93F642f64180aa3",
				Direction: "in",
				Holder:    "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
				Amount:    1000,
			}),

		NO_SUCH_RECORD.New("caller has no record at index 3").
			WithMetadata(RecordMetadata{
				Depositor: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
				Index:     3,
			}),

		ALREADY_RELEASED.New("record 1 already released").
			WithMetadata(RecordMetadata{
				Depositor: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
				Index:     0,
				RecordId:  1,
			}),

		TOO_EARLY.New("record 1 is still locked").
			WithMetadata(TooEarlyMetadata{RecordId: 1, UnlockTime: 1700000010, Now: 1700000000}),

		NOT_AUTHORIZED.New("only the owner can withdraw").
			WithMetadata(CallerMetadata{Caller: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"}),

		EXCEEDS_ENTITLEMENT.New("too much withdrawal").
			WithMetadata(AmountMetadata{Requested: 60, Available: 50}),

		INSUFFICIENT_LIQUIDITY.New("not enough liquidity").
			WithMetadata(AmountMetadata{Requested: 50, Available: 40}),
	}
}

func TestErrorFormat(t *testing.T) {
	fixtures := generateErrorFixtures()

	for _, err := range fixtures {
		require.NotNil(t, err)
		require.NotEmpty(t, err.Error())
		require.Contains(t, err.Error(), err.CodeName())
		require.NotNil(t, err.Log())
	}
}

func TestErrorMetadata(t *testing.T) {
	err := EXCEEDS_ENTITLEMENT.New("too much withdrawal").
		WithMetadata(AmountMetadata{Asset: "native", Requested: 60, Available: 50})

	md := err.Metadata()
	require.Equal(t, "native", md["asset"])
	require.Equal(t, "60", md["requested"])
	require.Equal(t, "50", md["available"])
	require.Equal(t, grpccodes.FailedPrecondition, err.GrpcCode())
	require.Equal(t, uint16(9), err.Code())

	empty := EMPTY_DEPOSIT.New("nothing to lock")
	require.Empty(t, empty.Metadata())
}

func TestCodeIs(t *testing.T) {
	err := TOO_EARLY.New("record 1 is still locked")
	wrapped := fmt.Errorf("unlock: %w", err)

	require.True(t, TOO_EARLY.Is(err))
	require.True(t, TOO_EARLY.Is(wrapped))
	require.False(t, ALREADY_RELEASED.Is(wrapped))
	require.False(t, TOO_EARLY.Is(fmt.Errorf("plain error")))
	require.False(t, TOO_EARLY.Is(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("balance 10 < 20")
	err := TRANSFER_FAILED.Wrap(cause)

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "TRANSFER_FAILED (4)")
	require.Contains(t, err.Error(), cause.Error())
}
