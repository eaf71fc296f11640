package repo_test

import (
	"testing"

	"github.com/hamed0406/endpointresolver/internal/repo"
	"github.com/hamed0406/endpointresolver/internal/repo/memory"
	pg "github.com/hamed0406/endpointresolver/internal/repo/postgres"
)

// Compile-time interface satisfaction checks.
// Using external test package avoids import cycle.
func TestInterfaceSatisfaction(t *testing.T) {
	var _ repo.HistoryStore = memory.New(10)
	var _ repo.AlertStore = memory.New(10)

	var _ repo.HistoryStore = (*pg.Store)(nil)
	var _ repo.AlertStore = (*pg.Store)(nil)
}
