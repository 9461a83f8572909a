package usecase_test

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ErlanBelekov/store-finder/internal/domain"
	"github.com/ErlanBelekov/store-finder/internal/email"
	"github.com/ErlanBelekov/store-finder/internal/repository"
	"github.com/google/uuid"
)

// ---- users ----

// memUserRepo is an in-memory UserRepository. Set the func fields to force failures.
type memUserRepo struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	nextID int

	findByEmailErr error
	setResetErr    error
}

func newMemUserRepo(users ...*domain.User) *memUserRepo {
	r := &memUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) clone(u *domain.User) *domain.User {
	c := *u
	c.Hearts = slices.Clone(u.Hearts)
	return &c
}

func (r *memUserRepo) Create(_ context.Context, in repository.CreateUserInput) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, in.Email) {
			return nil, domain.ErrEmailTaken
		}
	}
	r.nextID++
	u := &domain.User{
		ID:           fmt.Sprintf("user-%d", r.nextID),
		Email:        strings.ToLower(in.Email),
		Name:         in.Name,
		PasswordHash: in.PasswordHash,
	}
	r.users[u.ID] = u
	return r.clone(u), nil
}

func (r *memUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.clone(u), nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if r.findByEmailErr != nil {
		return nil, r.findByEmailErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return r.clone(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) UpdateAccount(_ context.Context, id, name, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Name, u.Email = name, email
	return r.clone(u), nil
}

func (r *memUserRepo) SetResetToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	if r.setResetErr != nil {
		return r.setResetErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.ResetPasswordToken = &tokenHash
	u.ResetPasswordExpires = &expiresAt
	return nil
}

func (r *memUserRepo) FindByResetToken(_ context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ResetPasswordToken != nil && *u.ResetPasswordToken == tokenHash && resetTokenLive(u, now) {
			return r.clone(u), nil
		}
	}
	return nil, domain.ErrTokenInvalid
}

func (r *memUserRepo) ResetPassword(_ context.Context, userID, tokenHash, passwordHash string, now time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok || u.ResetPasswordToken == nil || *u.ResetPasswordToken != tokenHash || !resetTokenLive(u, now) {
		return nil, domain.ErrTokenInvalid
	}
	u.PasswordHash = passwordHash
	u.ResetPasswordToken = nil
	u.ResetPasswordExpires = nil
	return r.clone(u), nil
}

func (r *memUserRepo) PurgeExpiredResetTokens(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.users {
		if u.ResetPasswordExpires != nil && !now.Before(*u.ResetPasswordExpires) {
			u.ResetPasswordToken, u.ResetPasswordExpires = nil, nil
			n++
		}
	}
	return n, nil
}

func (r *memUserRepo) AddHeart(_ context.Context, userID, storeID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if !slices.Contains(u.Hearts, storeID) {
		u.Hearts = append(u.Hearts, storeID)
	}
	return r.clone(u), nil
}

func (r *memUserRepo) RemoveHeart(_ context.Context, userID, storeID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Hearts = slices.DeleteFunc(u.Hearts, func(id string) bool { return id == storeID })
	return r.clone(u), nil
}

// ---- stores ----

type memStoreRepo struct {
	mu     sync.Mutex
	stores []*domain.Store
	clock  time.Time

	countErr  error
	updateHit bool
}

func newMemStoreRepo() *memStoreRepo {
	return &memStoreRepo{clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (r *memStoreRepo) Create(_ context.Context, s *domain.Store) (*domain.Store, error) {
	if s.Name == "" || len(s.Location.Coordinates) != 2 || s.Location.Address == "" || s.AuthorID == "" {
		return nil, &domain.ValidationError{Fields: []domain.FieldError{{Field: "Name", Message: "Please enter a store name!"}}}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = r.clock.Add(time.Minute)
	c := *s
	c.ID = uuid.NewString()
	c.Created = r.clock
	r.stores = append(r.stores, &c)
	out := c
	return &out, nil
}

func (r *memStoreRepo) Update(_ context.Context, s *domain.Store) (*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateHit = true
	for i, existing := range r.stores {
		if existing.ID == s.ID && existing.AuthorID == s.AuthorID {
			c := *s
			c.Created = existing.Created
			if c.Photo == nil {
				c.Photo = existing.Photo
			}
			r.stores[i] = &c
			out := c
			return &out, nil
		}
	}
	return nil, domain.ErrStoreNotFound
}

func (r *memStoreRepo) GetByID(_ context.Context, id string) (*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stores {
		if s.ID == id {
			c := *s
			return &c, nil
		}
	}
	return nil, domain.ErrStoreNotFound
}

func (r *memStoreRepo) GetBySlug(_ context.Context, slug string) (*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stores {
		if s.Slug == slug {
			c := *s
			return &c, nil
		}
	}
	return nil, domain.ErrStoreNotFound
}

func (r *memStoreRepo) sortedDesc() []*domain.Store {
	out := slices.Clone(r.stores)
	sort.Slice(out, func(i, j int) bool { return out[i].Created.After(out[j].Created) })
	return out
}

func (r *memStoreRepo) List(_ context.Context, in repository.ListStoresInput) ([]*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sortedDesc()
	if in.Skip >= len(all) {
		return nil, nil
	}
	end := min(in.Skip+in.Limit, len(all))
	return all[in.Skip:end], nil
}

func (r *memStoreRepo) Count(_ context.Context) (int, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores), nil
}

func (r *memStoreRepo) CountSlugs(_ context.Context, base string) (int, error) {
	re := regexp.MustCompile(`(?i)^(` + regexp.QuoteMeta(base) + `)((-[0-9]*)?)$`)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.stores {
		if re.MatchString(s.Slug) {
			n++
		}
	}
	return n, nil
}

func (r *memStoreRepo) ListByTag(_ context.Context, tag string) ([]*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Store
	for _, s := range r.sortedDesc() {
		if (tag == "" && len(s.Tags) > 0) || (tag != "" && slices.Contains(s.Tags, tag)) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memStoreRepo) TagList(_ context.Context) ([]domain.TagCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int{}
	for _, s := range r.stores {
		for _, t := range s.Tags {
			counts[t]++
		}
	}
	var out []domain.TagCount
	for t, c := range counts {
		out = append(out, domain.TagCount{Tag: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out, nil
}

func (r *memStoreRepo) Search(_ context.Context, q string, limit int) ([]*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Store
	for _, s := range r.stores {
		if strings.Contains(strings.ToLower(s.Name+" "+s.Description), strings.ToLower(q)) {
			out = append(out, s)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memStoreRepo) Near(_ context.Context, in repository.NearInput) ([]*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stores) > in.Limit {
		return slices.Clone(r.stores[:in.Limit]), nil
	}
	return slices.Clone(r.stores), nil
}

func (r *memStoreRepo) ListByIDs(_ context.Context, ids []string) ([]*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Store
	for _, s := range r.stores {
		if slices.Contains(ids, s.ID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memStoreRepo) Top(_ context.Context, _, _ int) ([]*domain.RankedStore, error) {
	return nil, nil
}

// ---- mail ----

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (s *fakeEmailSender) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *fakeEmailSender) messages() []email.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.sent)
}

// resetTokenLive mirrors the repository's "token set and not yet expired" predicate.
func resetTokenLive(u *domain.User, now time.Time) bool {
	return u.ResetPasswordToken != nil && u.ResetPasswordExpires != nil && now.Before(*u.ResetPasswordExpires)
}
