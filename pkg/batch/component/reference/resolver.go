// Package reference resolves country and industry names to stored reference entities.
package reference

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/repository"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/exception"
)

type cacheKey struct {
	dim  model.Dimension
	name string
}

// Resolver maps reference names to IDs, creating entities on first sight.
// A Resolver belongs to one chunk: its cache lives as long as the chunk and is not
// safe for concurrent use. Cross-chunk deduplication is left to the store.
type Resolver struct {
	store repository.ReferenceStore
	cache map[cacheKey]model.EntityID
}

func NewResolver(store repository.ReferenceStore) *Resolver {
	return &Resolver{store: store, cache: make(map[cacheKey]model.EntityID)}
}

// Resolve returns the ID of the entity of dim named name. Failed lookups are not cached.
func (r *Resolver) Resolve(ctx context.Context, dim model.Dimension, name string) (model.EntityID, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return 0, &exception.ValidationError{Fields: []exception.FieldError{{Field: string(dim), Reason: "is required"}}}
	}
	if utf8.RuneCountInString(normalized) > model.MaxNameLength {
		return 0, &exception.ValidationError{Fields: []exception.FieldError{{Field: string(dim), Reason: fmt.Sprintf("exceeds %d characters", model.MaxNameLength)}}}
	}

	key := cacheKey{dim: dim, name: normalized}
	if id, ok := r.cache[key]; ok {
		return id, nil
	}

	var (
		id  model.EntityID
		err error
	)
	switch dim {
	case model.DimensionCountry:
		id, err = r.store.GetOrCreateCountry(ctx, normalized)
	case model.DimensionIndustry:
		id, err = r.store.GetOrCreateIndustry(ctx, normalized, Slugify(normalized))
	default:
		return 0, exception.NewBatchError("resolver", fmt.Sprintf("unknown dimension '%s'", dim), nil, false, false)
	}
	if err != nil {
		return 0, err
	}
	r.cache[key] = id
	return id, nil
}

// Cached returns the number of cached names.
func (r *Resolver) Cached() int {
	return len(r.cache)
}

// NormalizeName trims name and collapses inner whitespace.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// Slugify lower-cases name and joins its alphanumeric runs with dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}
