package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	lockdv1 "github.com/lockbox-labs/lockd/api-spec/lockd/v1"
	"github.com/urfave/cli/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

var (
	infoCmd = &cli.Command{
		Name:   "info",
		Usage:  "Get the ledger configuration and fee pools",
		Flags:  []cli.Flag{urlFlag},
		Action: info,
	}
	lockCmd = &cli.Command{
		Name:   "lock",
		Usage:  "Lock native value and up to two tokens for a duration",
		Flags:  []cli.Flag{urlFlag, callerFlag(true), durationFlag, lockNativeFlag, tokenFlag},
		Action: lock,
	}
	unlockCmd = &cli.Command{
		Name:   "unlock",
		Usage:  "Release a matured deposit of the caller",
		Flags:  []cli.Flag{urlFlag, callerFlag(true), indexFlag},
		Action: unlock,
	}
	withdrawCmd = &cli.Command{
		Name:   "withdraw",
		Usage:  "Withdraw accrued fees, owner only",
		Flags:  []cli.Flag{urlFlag, callerFlag(true), withdrawNativeFlag, tokenFlag},
		Action: withdraw,
	}
	recordCmd = &cli.Command{
		Name:   "record",
		Usage:  "Get a deposit record by depositor and index",
		Flags:  []cli.Flag{urlFlag, callerFlag(false), depositorFlag, indexFlag},
		Action: getRecord,
	}
	recordsCmd = &cli.Command{
		Name:   "records",
		Usage:  "List the deposit records of a depositor",
		Flags:  []cli.Flag{urlFlag, callerFlag(false), depositorFlag},
		Action: listRecords,
	}
	feePoolCmd = &cli.Command{
		Name:   "fee-pool",
		Usage:  "Get the accrued fees of an asset",
		Flags:  []cli.Flag{urlFlag, assetFlag},
		Action: getFeePool,
	}
	historyCmd = &cli.Command{
		Name:   "history",
		Usage:  "List the events of a deposit record",
		Flags:  []cli.Flag{urlFlag, recordIdFlag},
		Action: getRecordHistory,
	}
)

func info(ctx *cli.Context) error {
	return call(ctx, func(reqCtx context.Context, client lockdv1.LedgerServiceClient) (any, error) {
		return client.GetInfo(reqCtx, &lockdv1.GetInfoRequest{})
	})
}

func lock(ctx *cli.Context) error {
	tokens, err := parseTokens(ctx.StringSlice(tokenFlagName))
	if err != nil {
		return err
	}
	req := &lockdv1.LockRequest{
		Tokens:          tokens,
		DurationSeconds: int64(ctx.Duration(durationFlagName).Seconds()),
		NativeValue:     ctx.Uint64(nativeFlagName),
	}
	return call(ctx, func(reqCtx context.Context, client lockdv1.LedgerServiceClient) (any, error) {
		return client.Lock(reqCtx, req)
	})
}

func unlock(ctx *cli.Context) error {
	req := &lockdv1.UnlockRequest{Index: ctx.Uint64(indexFlagName)}
	return call(ctx, func(reqCtx context.Context, client lockdv1.LedgerServiceClient) (any, error) {
		return client.Unlock(reqCtx, req)
	})
}

func withdraw(ctx *cli.Context) error {
	tokens, err := parseTokens(ctx.StringSlice(tokenFlagName))
	if err != nil {
		return err
	}
	req := &lockdv1.WithdrawRequest{
		NativeAmount: ctx.Uint64(nativeFlagName),
		Tokens:       tokens,
	}
	return call(ctx, func(reqCtx context.Context, client lockdv1.LedgerServiceClient) (any, error) {
		return client.Withdraw(reqCtx, req)
	})
}

func getRecord(ctx *cli.Context) error {
	req := &lockdv1.GetRecordRequest{
		Depositor: ctx.String(depositorFlagName),
		Index:     ctx.Uint64(indexFlagName),
	}
	return call(ctx, func(reqCtx context.Context, client lockdv1.LedgerServiceClient) (any, error) {
		return client.GetRecord(reqCtx, req)
	})
}

func listRecords(ctx *cli.Context) error {
	req := &lockdv1.ListRecordsRequest{Depositor: ctx.String(depositorFlagName)}
	return call(ctx, func(reqCtx context.Context, client lockdv1.LedgerServiceClient) (any, error) {
		return client.ListRecords(reqCtx, req)
	})
}

func getFeePool(ctx *cli.Context) error {
	req := &lockdv1.GetFeePoolRequest{Asset: ctx.String(assetFlagName)}
	return call(ctx, func(reqCtx context.Context, client lockdv1.LedgerServiceClient) (any, error) {
		return client.GetFeePool(reqCtx, req)
	})
}

func getRecordHistory(ctx *cli.Context) error {
	req := &lockdv1.GetRecordHistoryRequest{RecordId: ctx.Uint64(recordIdFlagName)}
	return call(ctx, func(reqCtx context.Context, client lockdv1.LedgerServiceClient) (any, error) {
		return client.GetRecordHistory(reqCtx, req)
	})
}

type rpcFunc func(context.Context, lockdv1.LedgerServiceClient) (any, error)

// call dials the server, attaches the caller header if any, runs fn and prints
// the response as json.
func call(ctx *cli.Context, fn rpcFunc) error {
	conn, err := grpc.NewClient(
		ctx.String(urlFlagName), grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", ctx.String(urlFlagName), err)
	}
	// nolint
	defer conn.Close()

	reqCtx, cancel := context.WithTimeout(ctx.Context, timeout)
	defer cancel()
	if caller := ctx.String(callerFlagName); caller != "" {
		reqCtx = metadata.AppendToOutgoingContext(reqCtx, lockdv1.CallerHeader, caller)
	}

	resp, err := fn(reqCtx, lockdv1.NewLedgerServiceClient(conn))
	if err != nil {
		return err
	}
	return printJSON(resp)
}

// parseTokens parses legs in the form <address>:<amount>.
func parseTokens(values []string) ([]lockdv1.TokenAmount, error) {
	tokens := make([]lockdv1.TokenAmount, 0, len(values))
	for _, v := range values {
		addr, amountStr, ok := strings.Cut(v, ":")
		if !ok {
			return nil, fmt.Errorf("invalid token %s, must be in the form <address>:<amount>", v)
		}
		amount, err := strconv.ParseUint(amountStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid amount for token %s: %w", addr, err)
		}
		tokens = append(tokens, lockdv1.TokenAmount{Address: addr, Amount: amount})
	}
	return tokens, nil
}

func printJSON(resp any) error {
	buf, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(buf))
	return nil
}
