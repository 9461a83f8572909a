package usecase

import (
	"context"
	"fmt"

	"github.com/gosimple/slug"
)

const fallbackSlug = "store"

// slugCounter is the subset of StoreRepository the slug step needs.
type slugCounter interface {
	CountSlugs(ctx context.Context, base string) (int, error)
}

// deriveSlug turns name into a URL-safe slug and disambiguates it against existing
// base / base-N slugs by appending -<count+1>. The count includes the record being
// renamed, and deletions can make it reuse a suffix.
func deriveSlug(ctx context.Context, repo slugCounter, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = fallbackSlug
	}

	n, err := repo.CountSlugs(ctx, base)
	if err != nil {
		return "", fmt.Errorf("count slugs: %w", err)
	}
	if n == 0 {
		return base, nil
	}
	return fmt.Sprintf("%s-%d", base, n+1), nil
}
