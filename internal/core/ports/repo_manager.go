package ports

import "github.com/lockbox-labs/lockd/internal/core/domain"

type RepoManager interface {
	Events() domain.EventRepository
	Ledger() domain.LedgerRepository
	Close()
}
