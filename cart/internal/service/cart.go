package service

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/storefront/cart/internal/metric"
	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/internal/repository"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/errors"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/validate"
)

const (
	OPERATION_ADD_ITEM        = "add_item"
	OPERATION_UPDATE_QUANTITY = "update_quantity"
	OPERATION_REMOVE_ITEM     = "remove_item"
	OPERATION_CLEAR           = "clear"
)

type CartService struct {
	repository repository.CartRepository
	currency   string
}

func NewCartService(repository repository.CartRepository, currency string) CartService {
	return CartService{repository: repository, currency: currency}
}

func (s CartService) Ping(c context.Context) error {
	return s.repository.Ping(c)
}

func (s CartService) validate(c context.Context, param interface{}) error {
	if err := validate.Get().StructCtx(c, param); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidArgument, err)
	}
	return nil
}

func (s CartService) GetCart(c context.Context, ownerId string) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService GetCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService GetCart").
		Str(constants.KEY_USER_ID, ownerId).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "loading cart").Logger()
	logger.Trace().Msg("loading cart")
	c = logger.WithContext(c)
	cart, err := s.repository.Load(c, ownerId)
	if err != nil {
		err = fmt.Errorf("failed loading cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Int(constants.KEY_CART_ITEMS_COUNT, cart.ItemCount()).Msg("loaded cart")

	return cart, nil
}

// AddItem merges the product into the line with the same product id and
// variant, or appends a new line. The returned count is the number of lines.
func (s CartService) AddItem(
	c context.Context,
	ownerId string,
	param request.AddItem,
) (cart response.Cart, itemCount int, err error) {
	c, span := otel.Tracer.Start(c, "CartService AddItem", trace.WithAttributes(
		attribute.String(constants.KEY_PRODUCT_ID, param.Product.ID),
		attribute.String(constants.KEY_VARIANT, param.Product.Variant),
	))
	defer span.End()
	defer func() { metric.ObserveMutation(OPERATION_ADD_ITEM, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService AddItem").
		Str(constants.KEY_USER_ID, ownerId).
		Str(constants.KEY_PRODUCT_ID, param.Product.ID).
		Str(constants.KEY_VARIANT, param.Product.Variant).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "validating param").Logger()
	logger.Trace().Msg("validating param")
	if err = s.validate(c, param); err != nil {
		err = fmt.Errorf("failed validating param with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, 0, err
	}
	quantity := 1
	if param.Quantity != nil {
		quantity = *param.Quantity
	}
	logger = logger.With().Int(constants.KEY_CART_ITEM_QUANTITY, quantity).Logger()
	logger.Trace().Msg("validated param")

	logger = logger.With().Str(constants.KEY_PROCESS, "adding item to cart").Logger()
	logger.Trace().Msg("adding item to cart")
	c = logger.WithContext(c)
	cart, err = s.repository.Update(c, ownerId, func(cart response.Cart) (response.Cart, error) {
		if i := cart.IndexOf(param.Product.ID, param.Product.Variant); i >= 0 {
			if cart.Items[i].Quantity > math.MaxInt-quantity {
				return cart, fmt.Errorf(
					"quantity=%d exceeds limit for existing quantity=%d with error=%w",
					quantity,
					cart.Items[i].Quantity,
					errors.ErrInvalidArgument,
				)
			}
			cart.Items[i].Quantity += quantity
			return cart, nil
		}
		cart.Items = append(cart.Items, response.CartItem{
			ProductID:   param.Product.ID,
			Name:        param.Product.Name,
			Slug:        param.Product.Slug,
			Category:    param.Product.Category,
			Description: param.Product.Description,
			Images:      param.Product.Images,
			Price:       param.Product.Price,
			Variant:     param.Product.Variant,
			Quantity:    quantity,
			AddedAt:     s.repository.Now(),
		})
		return cart, nil
	})
	if err != nil {
		err = fmt.Errorf("failed adding item to cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, 0, err
	}
	logger.Info().Int(constants.KEY_CART_ITEMS_COUNT, cart.ItemCount()).Msg("added item to cart")

	return cart, cart.ItemCount(), nil
}

// UpdateQuantity replaces the quantity of the addressed line. Zero removes it.
func (s CartService) UpdateQuantity(
	c context.Context,
	ownerId string,
	param request.UpdateQuantity,
) (cart response.Cart, action string, err error) {
	c, span := otel.Tracer.Start(c, "CartService UpdateQuantity", trace.WithAttributes(
		attribute.String(constants.KEY_PRODUCT_ID, param.ProductID),
		attribute.String(constants.KEY_VARIANT, param.Variant),
	))
	defer span.End()
	defer func() { metric.ObserveMutation(OPERATION_UPDATE_QUANTITY, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService UpdateQuantity").
		Str(constants.KEY_USER_ID, ownerId).
		Str(constants.KEY_PRODUCT_ID, param.ProductID).
		Str(constants.KEY_VARIANT, param.Variant).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "validating param").Logger()
	logger.Trace().Msg("validating param")
	if err = s.validate(c, param); err != nil {
		err = fmt.Errorf("failed validating param with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, "", err
	}
	quantity := *param.Quantity
	action = response.ACTION_UPDATED
	if quantity == 0 {
		action = response.ACTION_REMOVED
	}
	logger = logger.With().
		Int(constants.KEY_CART_ITEM_QUANTITY, quantity).
		Str(constants.KEY_CART_ACTION, action).
		Logger()
	logger.Trace().Msg("validated param")

	logger = logger.With().Str(constants.KEY_PROCESS, "updating item quantity").Logger()
	logger.Trace().Msg("updating item quantity")
	c = logger.WithContext(c)
	cart, err = s.repository.Update(c, ownerId, func(cart response.Cart) (response.Cart, error) {
		i := cart.IndexOf(param.ProductID, param.Variant)
		if i < 0 {
			return cart, fmt.Errorf(
				"itemId=%s variant=%s with error=%w",
				param.ProductID,
				param.Variant,
				errors.ErrItemNotFound,
			)
		}
		if quantity == 0 {
			cart.Items = append(cart.Items[:i:i], cart.Items[i+1:]...)
			return cart, nil
		}
		cart.Items[i].Quantity = quantity
		return cart, nil
	})
	if err != nil {
		err = fmt.Errorf("failed updating item quantity with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, "", err
	}
	logger.Info().Int(constants.KEY_CART_ITEMS_COUNT, cart.ItemCount()).Msg("updated item quantity")

	return cart, action, nil
}

func (s CartService) RemoveItem(
	c context.Context,
	ownerId string,
	param request.RemoveItem,
) (cart response.Cart, err error) {
	c, span := otel.Tracer.Start(c, "CartService RemoveItem", trace.WithAttributes(
		attribute.String(constants.KEY_PRODUCT_ID, param.ProductID),
		attribute.String(constants.KEY_VARIANT, param.Variant),
	))
	defer span.End()
	defer func() { metric.ObserveMutation(OPERATION_REMOVE_ITEM, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService RemoveItem").
		Str(constants.KEY_USER_ID, ownerId).
		Str(constants.KEY_PRODUCT_ID, param.ProductID).
		Str(constants.KEY_VARIANT, param.Variant).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "validating param").Logger()
	logger.Trace().Msg("validating param")
	if err = s.validate(c, param); err != nil {
		err = fmt.Errorf("failed validating param with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Trace().Msg("validated param")

	logger = logger.With().Str(constants.KEY_PROCESS, "removing item from cart").Logger()
	logger.Trace().Msg("removing item from cart")
	c = logger.WithContext(c)
	cart, err = s.repository.Update(c, ownerId, func(cart response.Cart) (response.Cart, error) {
		items := make([]response.CartItem, 0, len(cart.Items))
		for _, item := range cart.Items {
			if item.ProductID == param.ProductID && item.Variant == param.Variant {
				continue
			}
			items = append(items, item)
		}
		if len(items) == len(cart.Items) {
			return cart, fmt.Errorf(
				"itemId=%s variant=%s with error=%w",
				param.ProductID,
				param.Variant,
				errors.ErrItemNotFound,
			)
		}
		cart.Items = items
		return cart, nil
	})
	if err != nil {
		err = fmt.Errorf("failed removing item from cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Int(constants.KEY_CART_ITEMS_COUNT, cart.ItemCount()).Msg("removed item from cart")

	return cart, nil
}

func (s CartService) ClearCart(c context.Context, ownerId string) (cart response.Cart, err error) {
	c, span := otel.Tracer.Start(c, "CartService ClearCart")
	defer span.End()
	defer func() { metric.ObserveMutation(OPERATION_CLEAR, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService ClearCart").
		Str(constants.KEY_USER_ID, ownerId).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "clearing cart").Logger()
	logger.Trace().Msg("clearing cart")
	c = logger.WithContext(c)
	cart, err = s.repository.Clear(c, ownerId)
	if err != nil {
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("cleared cart")

	return cart, nil
}

// Count sums the quantity of every line in the owner's cart.
func (s CartService) Count(c context.Context, ownerId string) (int, error) {
	c, span := otel.Tracer.Start(c, "CartService Count")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService Count").
		Str(constants.KEY_USER_ID, ownerId).
		Logger()

	c = logger.WithContext(c)
	cart, err := s.repository.Load(c, ownerId)
	if err != nil {
		err = fmt.Errorf("failed counting cart items with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return 0, err
	}
	count := cart.Quantity()
	logger.Trace().Int(constants.KEY_CART_COUNT, count).Msg("counted cart items")

	return count, nil
}

// CountForProduct sums the quantity of the lines whose product id or slug is key.
func (s CartService) CountForProduct(c context.Context, ownerId string, key string) (int, error) {
	c, span := otel.Tracer.Start(c, "CartService CountForProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService CountForProduct").
		Str(constants.KEY_USER_ID, ownerId).
		Str(constants.KEY_PRODUCT_SLUG, key).
		Logger()

	c = logger.WithContext(c)
	cart, err := s.repository.Load(c, ownerId)
	if err != nil {
		err = fmt.Errorf("failed counting product items with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return 0, err
	}
	count := cart.QuantityFor(key)
	logger.Trace().Int(constants.KEY_CART_COUNT, count).Msg("counted product items")

	return count, nil
}

func (s CartService) Total(c context.Context, ownerId string) (response.Total, error) {
	c, span := otel.Tracer.Start(c, "CartService Total")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CartService Total").
		Str(constants.KEY_USER_ID, ownerId).
		Logger()

	c = logger.WithContext(c)
	cart, err := s.repository.Load(c, ownerId)
	if err != nil {
		err = fmt.Errorf("failed computing cart total with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Total{}, err
	}
	total := cart.TotalResponse(s.currency)
	logger.Trace().Stringer(constants.KEY_CART_TOTAL, total.Total).Msg("computed cart total")

	return total, nil
}
