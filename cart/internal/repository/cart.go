package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/internal/cache"
	"github.com/Alturino/storefront/cart/internal/metric"
	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inOtel "github.com/Alturino/storefront/internal/otel"
)

const (
	DEFAULT_TTL         = 7 * 24 * time.Hour
	DEFAULT_MAX_RETRIES = 10
)

type CartRepository struct {
	store      Store
	ttl        time.Duration
	maxRetries int
	now        func() time.Time
}

type Option func(*CartRepository)

func WithClock(now func() time.Time) Option {
	return func(r *CartRepository) {
		if now != nil {
			r.now = now
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(r *CartRepository) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func WithMaxRetries(maxRetries int) Option {
	return func(r *CartRepository) {
		if maxRetries >= 0 {
			r.maxRetries = maxRetries
		}
	}
}

func NewCartRepository(store Store, opts ...Option) CartRepository {
	repository := CartRepository{
		store:      store,
		ttl:        DEFAULT_TTL,
		maxRetries: DEFAULT_MAX_RETRIES,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&repository)
	}
	return repository
}

func (r CartRepository) Now() time.Time {
	return r.now().UTC()
}

func (r CartRepository) TTL() time.Duration {
	return r.ttl
}

func (r CartRepository) Ping(c context.Context) error {
	if err := r.store.Ping(c); err != nil {
		return fmt.Errorf("failed pinging store with error=%w: %w", inErrors.ErrStorageUnavailable, err)
	}
	return nil
}

func (r CartRepository) decode(ownerId string, value []byte) (response.Cart, error) {
	cart := response.Cart{}
	if err := json.Unmarshal(value, &cart); err != nil {
		return response.Cart{}, err
	}
	if cart.Items == nil {
		cart.Items = []response.CartItem{}
	}
	if cart.OwnerID == "" {
		cart.OwnerID = ownerId
	}
	return cart, nil
}

func (r CartRepository) stamp(cart response.Cart) response.Cart {
	now := r.Now()
	if cart.Items == nil {
		cart.Items = []response.CartItem{}
	}
	cart.UpdatedAt = now
	cart.ExpiresAt = now.Add(r.ttl)
	return cart
}

// Load returns the owner's cart. An absent or expired document yields a fresh
// empty cart which is not persisted; an expired one is deleted first.
func (r CartRepository) Load(c context.Context, ownerId string) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartRepository Load")
	defer span.End()

	key := cache.CartKey(ownerId)
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartRepository Load").
		Str(constants.KEY_USER_ID, ownerId).
		Str(constants.KEY_CACHE_KEY, key).
		Logger()

	if ownerId == "" {
		err := fmt.Errorf("failed loading cart with error=%w", inErrors.ErrInvalidArgument)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "getting cart from store").Logger()
	logger.Trace().Msg("getting cart from store")
	value, err := r.store.Get(c, key)
	if errors.Is(err, ErrKeyNotFound) {
		logger.Trace().Msg("cart not found returning empty cart")
		return response.NewCart(ownerId), nil
	}
	if err != nil {
		err = fmt.Errorf("failed getting cart from store with error=%w: %w", inErrors.ErrStorageUnavailable, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Trace().Msg("got cart from store")

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding cart").Logger()
	logger.Trace().Msg("decoding cart")
	cart, err := r.decode(ownerId, value)
	if err != nil {
		err = fmt.Errorf("failed decoding cart with error=%w: %w", inErrors.ErrStorageUnavailable, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Trace().Msg("decoded cart")

	if cart.Expired(r.now()) {
		logger = logger.With().
			Str(constants.KEY_PROCESS, "deleting expired cart").
			Time(constants.KEY_EXPIRES_AT, cart.ExpiresAt).
			Logger()
		logger.Info().Msg("deleting expired cart")
		if err := r.store.Del(c, key); err != nil {
			err = fmt.Errorf("failed deleting expired cart with error=%w", err)
			inOtel.RecordError(err, span)
			logger.Warn().Err(err).Msg(err.Error())
		} else {
			logger.Info().Msg("deleted expired cart")
		}
		return response.NewCart(ownerId), nil
	}

	return cart, nil
}

// Save overwrites the owner's document, stamping updatedAt and expiresAt and
// refreshing the store TTL.
func (r CartRepository) Save(c context.Context, cart response.Cart) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartRepository Save")
	defer span.End()

	key := cache.CartKey(cart.OwnerID)
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartRepository Save").
		Str(constants.KEY_USER_ID, cart.OwnerID).
		Str(constants.KEY_CACHE_KEY, key).
		Logger()

	if cart.OwnerID == "" {
		err := fmt.Errorf("failed saving cart with error=%w", inErrors.ErrInvalidArgument)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	cart = r.stamp(cart)

	logger = logger.With().Str(constants.KEY_PROCESS, "encoding cart").Logger()
	logger.Trace().Msg("encoding cart")
	value, err := json.Marshal(cart)
	if err != nil {
		err = fmt.Errorf("failed encoding cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Trace().Msg("encoded cart")

	logger = logger.With().Str(constants.KEY_PROCESS, "setting cart to store").Logger()
	logger.Trace().Msg("setting cart to store")
	if err := r.store.Set(c, key, value, r.ttl); err != nil {
		err = fmt.Errorf("failed setting cart to store with error=%w: %w", inErrors.ErrStorageUnavailable, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Trace().Int(constants.KEY_CART_ITEMS_COUNT, cart.ItemCount()).Msg("set cart to store")

	return cart, nil
}

func (r CartRepository) Clear(c context.Context, ownerId string) (response.Cart, error) {
	return r.Save(c, response.NewCart(ownerId))
}

// Update applies fn to the owner's current cart and persists the result only
// if no other writer touched the document in between. Conflicting attempts
// are retried up to maxRetries times before ErrConflict is returned. Errors
// returned by fn are passed through unchanged.
func (r CartRepository) Update(
	c context.Context,
	ownerId string,
	fn func(response.Cart) (response.Cart, error),
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartRepository Update")
	defer span.End()

	key := cache.CartKey(ownerId)
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartRepository Update").
		Str(constants.KEY_USER_ID, ownerId).
		Str(constants.KEY_CACHE_KEY, key).
		Logger()

	if ownerId == "" {
		err := fmt.Errorf("failed updating cart with error=%w", inErrors.ErrInvalidArgument)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		logger := logger.With().
			Str(constants.KEY_PROCESS, "updating cart in store").
			Int(constants.KEY_ATTEMPT, attempt).
			Logger()
		logger.Trace().Msg("updating cart in store")

		var (
			fnErr error
			saved response.Cart
		)
		err := r.store.Update(c, key, r.ttl, func(current []byte, found bool) ([]byte, error) {
			cart := response.NewCart(ownerId)
			if found {
				decoded, err := r.decode(ownerId, current)
				if err != nil {
					return nil, fmt.Errorf("failed decoding cart with error=%w", err)
				}
				if !decoded.Expired(r.now()) {
					cart = decoded
				}
			}

			next, err := fn(cart)
			if err != nil {
				fnErr = err
				return nil, err
			}
			next.OwnerID = ownerId
			saved = r.stamp(next)
			return json.Marshal(saved)
		})
		if fnErr != nil {
			return response.Cart{}, fnErr
		}
		if errors.Is(err, ErrTxFailed) {
			metric.CartConflictRetries.Inc()
			logger.Debug().Err(err).Msg("cart modified concurrently retrying")
			if ctxErr := c.Err(); ctxErr != nil {
				err = fmt.Errorf("failed updating cart with error=%w", ctxErr)
				inOtel.RecordError(err, span)
				logger.Error().Err(err).Msg(err.Error())
				return response.Cart{}, err
			}
			continue
		}
		if err != nil {
			err = fmt.Errorf("failed updating cart in store with error=%w: %w", inErrors.ErrStorageUnavailable, err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.Cart{}, err
		}
		logger.Trace().Int(constants.KEY_CART_ITEMS_COUNT, saved.ItemCount()).Msg("updated cart in store")
		return saved, nil
	}

	err := fmt.Errorf("failed updating cart after %d retries with error=%w", r.maxRetries, inErrors.ErrConflict)
	inOtel.RecordError(err, span)
	logger.Error().Err(err).Msg(err.Error())
	return response.Cart{}, err
}
