package api

import (
	"context"
	"errors"

	"cloud.google.com/go/civil"

	"github.com/hyperengineering/tally/internal/store"
	"github.com/hyperengineering/tally/internal/types"
)

type storeContextKey struct{}

type accountContextKey struct{}

type todayContextKey struct{}

type clockTodayContextKey struct{}

// ErrNoStoreInContext indicates no store was found in the context.
var ErrNoStoreInContext = errors.New("no store in context")

// ErrNoAccountInContext indicates the request was not authenticated.
var ErrNoAccountInContext = errors.New("no account in context")

// WithStore returns a new context with the record store attached.
func WithStore(ctx context.Context, s store.Store) context.Context {
	return context.WithValue(ctx, storeContextKey{}, s)
}

// StoreFromContext extracts the record store from the context.
// Returns ErrNoStoreInContext if not present or nil.
func StoreFromContext(ctx context.Context) (store.Store, error) {
	s, ok := ctx.Value(storeContextKey{}).(store.Store)
	if !ok || s == nil {
		return nil, ErrNoStoreInContext
	}
	return s, nil
}

// MustStoreFromContext extracts the store or panics.
// Use only when middleware guarantees store presence.
func MustStoreFromContext(ctx context.Context) store.Store {
	s, err := StoreFromContext(ctx)
	if err != nil {
		panic("store not in context: middleware misconfiguration")
	}
	return s
}

// WithAccount returns a new context with the authenticated account attached.
func WithAccount(ctx context.Context, a *types.Account) context.Context {
	return context.WithValue(ctx, accountContextKey{}, a)
}

// AccountFromContext extracts the authenticated account.
func AccountFromContext(ctx context.Context) (*types.Account, error) {
	a, ok := ctx.Value(accountContextKey{}).(*types.Account)
	if !ok || a == nil {
		return nil, ErrNoAccountInContext
	}
	return a, nil
}

// MustAccountFromContext extracts the account or panics.
func MustAccountFromContext(ctx context.Context) *types.Account {
	a, err := AccountFromContext(ctx)
	if err != nil {
		panic("account not in context: middleware misconfiguration")
	}
	return a
}

// WithToday returns a new context carrying the request's calendar date.
func WithToday(ctx context.Context, d civil.Date) context.Context {
	return context.WithValue(ctx, todayContextKey{}, d)
}

// TodayFromContext returns the date resolved for this request. The second
// result is false when no date was attached.
func TodayFromContext(ctx context.Context) (civil.Date, bool) {
	d, ok := ctx.Value(todayContextKey{}).(civil.Date)
	return d, ok
}

// WithClockToday returns a new context carrying the account's current day
// according to the server clock.
func WithClockToday(ctx context.Context, d civil.Date) context.Context {
	return context.WithValue(ctx, clockTodayContextKey{}, d)
}

// ClockTodayFromContext returns the server-clock day attached by
// TodayMiddleware.
func ClockTodayFromContext(ctx context.Context) (civil.Date, bool) {
	d, ok := ctx.Value(clockTodayContextKey{}).(civil.Date)
	return d, ok
}
