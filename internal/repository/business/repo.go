// Package business is the structured backend: canonical records from
// Postgres plus query-term field matching.
package business

import (
	"context"
	"errors"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/kailas-cloud/concierge/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Querier is the narrow pgx contract the repository needs; *pgxpool.Pool
// satisfies it.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repo reads canonical business records.
type Repo struct {
	q Querier
}

// New creates a business repository.
func New(q Querier) *Repo {
	return &Repo{q: q}
}

// Get fetches one business by id.
func (r *Repo) Get(ctx context.Context, id string) (*domain.Business, error) {
	sqlStr, args, err := psql.
		Select("id", "name", "address", "phone", "price_tier", "hours", "amenities").
		From("businesses").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var (
		b             domain.Business
		hoursJSON     []byte
		amenitiesJSON []byte
	)
	err = r.q.QueryRow(ctx, sqlStr, args...).Scan(
		&b.ID, &b.Name, &b.Address, &b.Phone, &b.PriceTier, &hoursJSON, &amenitiesJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBusinessNotFound
	}
	if err != nil {
		return nil, err
	}

	if b.Hours, err = hoursFromJSON(hoursJSON); err != nil {
		return nil, err
	}
	if b.Amenities, err = amenitiesFromJSON(amenitiesJSON); err != nil {
		return nil, err
	}
	return &b, nil
}

// Search fetches the business and scores how well its canonical fields
// match the question. The business itself is the one and only meaningful
// structured match.
func (r *Repo) Search(ctx context.Context, query, businessID string) (domain.StructuredResult, error) {
	b, err := r.Get(ctx, businessID)
	if err != nil {
		return domain.StructuredResult{}, err
	}

	matched, score := matchFields(b, query)
	return domain.StructuredResult{
		Business:      b,
		MatchedFields: matched,
		Score:         score,
	}, nil
}

// Field keyword groups for the match heuristic. Deliberately shallow: the
// classifier already decided intent; this only grades field relevance.
var fieldKeywords = map[string][]string{
	"hours":   {"open", "close", "closed", "hours", "hour", "when", "time", "today", "tonight", "now"},
	"phone":   {"phone", "call", "number", "contact"},
	"address": {"where", "address", "located", "location", "street", "directions"},
	"price":   {"price", "prices", "cost", "expensive", "cheap", "affordable"},
}

func matchFields(b *domain.Business, query string) ([]string, float64) {
	terms := map[string]bool{}
	for _, t := range strings.Fields(strings.ToLower(query)) {
		terms[strings.Trim(t, "?!.,'\"")] = true
	}

	var matched []string
	for field, words := range fieldKeywords {
		for _, w := range words {
			if terms[w] {
				matched = append(matched, field)
				break
			}
		}
	}

	for _, t := range strings.Fields(strings.ToLower(b.Name)) {
		if terms[t] {
			matched = append(matched, "name")
			break
		}
	}

	queryText := strings.ToLower(query)
	for key := range b.Amenities {
		if strings.Contains(queryText, domain.AmenityLabel(key)) {
			matched = append(matched, "amenities."+key)
		}
	}

	sort.Strings(matched)

	// A found record is already a strong structured signal; each matched
	// field adds confidence up to the cap.
	score := 0.5 + 0.15*float64(len(matched))
	if score > 1.0 {
		score = 1.0
	}
	return matched, score
}
