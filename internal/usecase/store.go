package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ErlanBelekov/store-finder/internal/domain"
	"github.com/ErlanBelekov/store-finder/internal/metrics"
	"github.com/ErlanBelekov/store-finder/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	StoresPerPage    = 4
	searchLimit      = 5
	nearLimit        = 10
	nearMaxDistanceM = 10_000
	topLimit         = 10
	topMinReviews    = 2
)

type StoreUsecase struct {
	stores repository.StoreRepository
	users  repository.UserRepository
}

func NewStoreUsecase(stores repository.StoreRepository, users repository.UserRepository) *StoreUsecase {
	return &StoreUsecase{stores: stores, users: users}
}

// StoreInput carries the user-editable fields of a store. Photo is nil when no new photo was uploaded.
type StoreInput struct {
	Name        string
	Description string
	Tags        []string
	Lng         *float64
	Lat         *float64
	Address     string
	Photo       *string
}

type CreateStoreInput struct {
	AuthorID string
	StoreInput
}

type UpdateStoreInput struct {
	ID      string
	ActorID string
	StoreInput
}

func (in StoreInput) location() domain.Location {
	loc := domain.Location{Type: domain.PointType, Address: strings.TrimSpace(in.Address)}
	if in.Lng != nil && in.Lat != nil {
		loc.Coordinates = []float64{*in.Lng, *in.Lat}
	}
	return loc
}

func (u *StoreUsecase) CreateStore(ctx context.Context, input CreateStoreInput) (*domain.Store, error) {
	name := strings.TrimSpace(input.Name)

	s := &domain.Store{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Tags:        input.Tags,
		Location:    input.location(),
		Photo:       input.Photo,
		AuthorID:    input.AuthorID,
	}

	if name != "" {
		slug, err := deriveSlug(ctx, u.stores, name)
		if err != nil {
			return nil, err
		}
		s.Slug = slug
	}

	created, err := u.stores.Create(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	metrics.StoresCreatedTotal.Inc()
	return created, nil
}

// GetForEdit returns the store only if actorID owns it.
func (u *StoreUsecase) GetForEdit(ctx context.Context, storeID, actorID string) (*domain.Store, error) {
	s, err := u.stores.GetByID(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}
	if err := domain.ConfirmOwner(s, actorID); err != nil {
		return nil, err
	}
	return s, nil
}

func (u *StoreUsecase) UpdateStore(ctx context.Context, input UpdateStoreInput) (*domain.Store, error) {
	current, err := u.GetForEdit(ctx, input.ID, input.ActorID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	next := &domain.Store{
		ID:          current.ID,
		Name:        name,
		Slug:        current.Slug,
		Description: strings.TrimSpace(input.Description),
		Tags:        input.Tags,
		Location:    input.location(),
		Photo:       input.Photo,
		AuthorID:    current.AuthorID,
	}

	// Only a rename recomputes the slug.
	if name != "" && name != current.Name {
		slug, err := deriveSlug(ctx, u.stores, name)
		if err != nil {
			return nil, err
		}
		next.Slug = slug
	}

	updated, err := u.stores.Update(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("update store: %w", err)
	}
	return updated, nil
}

type StorePage struct {
	Stores []*domain.Store
	Page   int
	Count  int
	Pages  int
}

// ListStores returns one page of stores, newest first. A page past the end yields a
// *domain.PageOutOfRangeError naming the last page.
func (u *StoreUsecase) ListStores(ctx context.Context, page int) (*StorePage, error) {
	if page < 1 {
		page = 1
	}
	skip := page*StoresPerPage - StoresPerPage

	var (
		stores []*domain.Store
		count  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stores, err = u.stores.List(gctx, repository.ListStoresInput{Skip: skip, Limit: StoresPerPage})
		return err
	})
	g.Go(func() error {
		var err error
		count, err = u.stores.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}

	pages := (count + StoresPerPage - 1) / StoresPerPage

	if len(stores) == 0 && skip > 0 {
		return nil, &domain.PageOutOfRangeError{Requested: page, Last: max(pages, 1)}
	}

	return &StorePage{Stores: stores, Page: page, Count: count, Pages: pages}, nil
}

// GetBySlug returns the store with its author and reviews, or ErrStoreNotFound.
func (u *StoreUsecase) GetBySlug(ctx context.Context, slug string) (*domain.Store, error) {
	s, err := u.stores.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get store by slug: %w", err)
	}
	return s, nil
}

type TagResult struct {
	Tag    string
	Tags   []domain.TagCount
	Stores []*domain.Store
}

func (u *StoreUsecase) GetByTag(ctx context.Context, tag string) (*TagResult, error) {
	res := &TagResult{Tag: tag}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		res.Tags, err = u.stores.TagList(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		res.Stores, err = u.stores.ListByTag(gctx, tag)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("stores by tag: %w", err)
	}
	return res, nil
}

func (u *StoreUsecase) Search(ctx context.Context, query string) ([]*domain.Store, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*domain.Store{}, nil
	}
	stores, err := u.stores.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search stores: %w", err)
	}
	return stores, nil
}

// Near returns up to 10 stores within 10km of (lng, lat), nearest first.
func (u *StoreUsecase) Near(ctx context.Context, lng, lat float64) ([]*domain.Store, error) {
	stores, err := u.stores.Near(ctx, repository.NearInput{
		Lng:            lng,
		Lat:            lat,
		MaxDistanceMet: nearMaxDistanceM,
		Limit:          nearLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("near stores: %w", err)
	}
	return stores, nil
}

// ToggleHeart removes storeID from the user's hearts if present, adds it otherwise.
func (u *StoreUsecase) ToggleHeart(ctx context.Context, userID, storeID string) (*domain.User, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	// Hearts hold canonical lowercase ids; compare in the same form.
	id, err := uuid.Parse(storeID)
	if err != nil {
		return nil, domain.ErrStoreNotFound
	}
	storeID = id.String()

	if user.HasHeart(storeID) {
		user, err = u.users.RemoveHeart(ctx, userID, storeID)
		if err == nil {
			metrics.HeartsToggledTotal.WithLabelValues("removed").Inc()
		}
	} else {
		user, err = u.users.AddHeart(ctx, userID, storeID)
		if err == nil {
			metrics.HeartsToggledTotal.WithLabelValues("added").Inc()
		}
	}
	if err != nil {
		if errors.Is(err, domain.ErrStoreNotFound) {
			return nil, domain.ErrStoreNotFound
		}
		return nil, fmt.Errorf("toggle heart: %w", err)
	}
	return user, nil
}

func (u *StoreUsecase) Hearted(ctx context.Context, userID string) ([]*domain.Store, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	stores, err := u.stores.ListByIDs(ctx, user.Hearts)
	if err != nil {
		return nil, fmt.Errorf("hearted stores: %w", err)
	}
	return stores, nil
}

// Top ranks stores with at least two reviews by average rating.
func (u *StoreUsecase) Top(ctx context.Context) ([]*domain.RankedStore, error) {
	ranked, err := u.stores.Top(ctx, topMinReviews, topLimit)
	if err != nil {
		return nil, fmt.Errorf("top stores: %w", err)
	}
	return ranked, nil
}
