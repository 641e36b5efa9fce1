package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/homesite/internal/dbx"
	"github.com/dmitrijs2005/homesite/internal/server/repositories/users"
)

// MemoryRepositoryManager serves a single in-process store. The db handle
// passed to its factories is ignored and may be nil.
type MemoryRepositoryManager struct {
	users *users.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{users: users.NewMemoryRepository()}
}

// RunMigrations is a no-op: the in-memory store has no schema.
func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return m.users
}
