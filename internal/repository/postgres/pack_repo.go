package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/repository"
)

var _ repository.PackRepository = (*pgPackRepo)(nil)

type pgPackRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresPackRepository creates a new PostgreSQL-backed pack catalog.
func NewPostgresPackRepository(pool *pgxpool.Pool) repository.PackRepository {
	return &pgPackRepo{pool: pool}
}

func (r *pgPackRepo) ListPacks(ctx context.Context) ([]*domain.Pack, error) {
	query := `
		SELECT id, name, description, image_url_1, image_url_2, created_at
		FROM packs
		ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list packs: %w", err)
	}
	defer rows.Close()

	packs := []*domain.Pack{}
	for rows.Next() {
		p := &domain.Pack{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL1, &p.ImageURL2, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan pack: %w", err)
		}
		packs = append(packs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list packs: %w", err)
	}
	return packs, nil
}

func (r *pgPackRepo) ListPrompts(ctx context.Context, packID uuid.UUID) ([]*domain.PackPrompt, error) {
	query := `
		SELECT id, pack_id, prompt
		FROM pack_prompts
		WHERE pack_id = $1
		ORDER BY position, id`

	rows, err := r.pool.Query(ctx, query, packID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pack prompts: %w", err)
	}
	defer rows.Close()

	var prompts []*domain.PackPrompt
	for rows.Next() {
		p := &domain.PackPrompt{}
		if err := rows.Scan(&p.ID, &p.PackID, &p.Prompt); err != nil {
			return nil, fmt.Errorf("postgres: scan pack prompt: %w", err)
		}
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list pack prompts: %w", err)
	}
	return prompts, nil
}
