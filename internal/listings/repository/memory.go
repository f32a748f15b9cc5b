package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	listingserrors "wanderlust/internal/listings/errors"
	"wanderlust/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MemoryListingRepository struct {
	mu       sync.RWMutex
	listings map[string]*model.Listing
}

func NewMemoryListingRepository(listings ...*model.Listing) *MemoryListingRepository {
	r := &MemoryListingRepository{listings: map[string]*model.Listing{}}
	for _, l := range listings {
		r.Put(l)
	}
	return r
}

// Put stores a copy of l, assigning an ID when it has none.
func (r *MemoryListingRepository) Put(l *model.Listing) *model.Listing {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l.ID == "" {
		l.ID = primitive.NewObjectID().Hex()
	}
	stored := *l
	r.listings[l.ID] = &stored
	return l
}

func (r *MemoryListingRepository) FindByID(_ context.Context, id string) (*model.Listing, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, listingserrors.ErrInvalidID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.listings[id]
	if !ok {
		return nil, listingserrors.ErrNotFound
	}
	clone := *l
	return &clone, nil
}

func (r *MemoryListingRepository) Search(_ context.Context, where string, limit int, offset int64) ([]*model.Listing, error) {
	matched := r.match(where)
	if offset >= int64(len(matched)) {
		return []*model.Listing{}, nil
	}
	end := min(int(offset)+limit, len(matched))
	return matched[offset:end], nil
}

func (r *MemoryListingRepository) Count(_ context.Context, where string) (int64, error) {
	return int64(len(r.match(where))), nil
}

func (r *MemoryListingRepository) match(where string) []*model.Listing {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(where)
	var out []*model.Listing
	for _, l := range r.listings {
		if needle == "" ||
			strings.Contains(strings.ToLower(l.Location), needle) ||
			strings.Contains(strings.ToLower(l.Country), needle) ||
			strings.Contains(strings.ToLower(l.Title), needle) {
			clone := *l
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
