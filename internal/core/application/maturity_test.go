package application_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/lockbox-labs/lockd/internal/core/application"
	"github.com/lockbox-labs/lockd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestMaturityNotifier(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes once the unlock time is reached", func(t *testing.T) {
		env := newTestEnv(t, 5)
		require.True(t, env.scheduler.started)

		id, err := env.svc.Lock(ctx, nativeLock(alice, 1000, 3600))
		require.NoError(t, err)
		require.Equal(t, 1, env.scheduler.pending())

		require.Zero(t, env.scheduler.runDue(startTime+3599))
		require.Empty(t, env.repo.events.ofType(domain.EventTypeMatured))

		env.clock.Set(startTime + 3600)
		require.Equal(t, 1, env.scheduler.runDue(startTime+3600))

		events := env.repo.events.ofType(domain.EventTypeMatured)
		require.Len(t, events, 1)
		matured := events[0].(domain.Matured)
		require.Equal(t, id, matured.RecordId)
		require.Equal(t, alice, matured.Depositor)
		require.Equal(t, startTime+3600, matured.UnlockTime)
	})

	t.Run("released records are skipped", func(t *testing.T) {
		env := newTestEnv(t, 5)

		id, err := env.svc.Lock(ctx, nativeLock(alice, 1000, 0))
		require.NoError(t, err)
		require.Equal(t, 1, env.scheduler.pending())

		_, err = env.svc.Unlock(ctx, application.UnlockRequest{Caller: alice, Index: 0})
		require.NoError(t, err)

		require.Equal(t, []string{fmt.Sprintf("maturity-%d", id)}, env.scheduler.cancelled)
		require.Zero(t, env.scheduler.pending())
		require.Zero(t, env.scheduler.runDue(startTime))
		require.Empty(t, env.repo.events.ofType(domain.EventTypeMatured))
	})

	t.Run("locked records are restored on start", func(t *testing.T) {
		env := newTestEnv(t, 5)

		_, err := env.svc.Lock(ctx, nativeLock(alice, 1000, 60))
		require.NoError(t, err)
		_, err = env.svc.Lock(ctx, nativeLock(bob, 1000, 0))
		require.NoError(t, err)
		_, err = env.svc.Unlock(ctx, application.UnlockRequest{Caller: bob, Index: 0})
		require.NoError(t, err)
		env.svc.Stop()
		require.False(t, env.scheduler.started)

		scheduler := &mockScheduler{}
		svc, err := application.NewService(env.repo, env.bank, scheduler, nil, env.clock)
		require.NoError(t, err)
		require.NoError(t, svc.Start())

		require.Equal(t, 1, scheduler.pending())
		require.Equal(t, 1, scheduler.runDue(startTime+60))
		require.Len(t, env.repo.events.ofType(domain.EventTypeMatured), 1)
	})
}
