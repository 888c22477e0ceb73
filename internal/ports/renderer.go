package ports

import (
	"context"

	"github.com/bnema/dashd/internal/domain"
)

type Renderer interface {
	Render(ctx context.Context, panels []domain.Panel) error
}
