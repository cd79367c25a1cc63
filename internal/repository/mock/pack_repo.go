package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/repository"
)

var _ repository.PackRepository = (*PackRepository)(nil)

// PackRepository is an in-memory pack catalog for testing.
type PackRepository struct {
	mu      sync.RWMutex
	packs   []*domain.Pack
	prompts map[uuid.UUID][]*domain.PackPrompt

	ListPacksFunc   func(ctx context.Context) ([]*domain.Pack, error)
	ListPromptsFunc func(ctx context.Context, packID uuid.UUID) ([]*domain.PackPrompt, error)
}

// NewPackRepository creates an empty mock pack catalog.
func NewPackRepository() *PackRepository {
	return &PackRepository{prompts: make(map[uuid.UUID][]*domain.PackPrompt)}
}

// AddPack seeds a pack with the given prompt templates and returns it.
func (m *PackRepository) AddPack(name string, prompts ...string) *domain.Pack {
	m.mu.Lock()
	defer m.mu.Unlock()
	pack := &domain.Pack{ID: uuid.New(), Name: name}
	m.packs = append(m.packs, pack)
	for _, p := range prompts {
		m.prompts[pack.ID] = append(m.prompts[pack.ID], &domain.PackPrompt{ID: uuid.New(), PackID: pack.ID, Prompt: p})
	}
	return pack
}

func (m *PackRepository) ListPacks(ctx context.Context) ([]*domain.Pack, error) {
	if m.ListPacksFunc != nil {
		return m.ListPacksFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.Pack{}, m.packs...), nil
}

func (m *PackRepository) ListPrompts(ctx context.Context, packID uuid.UUID) ([]*domain.PackPrompt, error) {
	if m.ListPromptsFunc != nil {
		return m.ListPromptsFunc(ctx, packID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.PackPrompt{}, m.prompts[packID]...), nil
}
