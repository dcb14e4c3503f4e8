package main

import (
	"testing"

	lockdv1 "github.com/lockbox-labs/lockd/api-spec/lockd/v1"
	"github.com/stretchr/testify/require"
)

func TestParseTokens(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		tokens, err := parseTokens([]string{
			"0x5FbDB2315678afecb367f032d93F642f64180aa3:100",
			"native:5",
		})
		require.NoError(t, err)
		require.Equal(t, []lockdv1.TokenAmount{
			{Address: "0x5FbDB2315678afecb367f032d93F642f64180aa3", Amount: 100},
			{Address: "native", Amount: 5},
		}, tokens)
	})

	t.Run("invalid", func(t *testing.T) {
		fixtures := []string{
			"0x5FbDB2315678afecb367f032d93F642f64180aa3",
			"0x5FbDB2315678afecb367f032d93F642f64180aa3:",
			"0x5FbDB2315678afecb367f032d93F642f64180aa3:-1",
			"0x5FbDB2315678afecb367f032d93F642f64180aa3:ten",
		}
		for _, f := range fixtures {
			_, err := parseTokens([]string{f})
			require.Error(t, err, f)
		}
	})
}
