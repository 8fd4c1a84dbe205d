package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/storefront/cart/internal/metric"
	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/internal/service"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/middleware"
	inOtel "github.com/Alturino/storefront/internal/otel"
)

const (
	ENDPOINT_COUNT             = "count"
	ENDPOINT_COUNT_FOR_PRODUCT = "count_for_product"
)

type CartController struct {
	service *service.CartService
}

func AttachCartController(router *mux.Router, service *service.CartService, auth config.Auth) {
	controller := CartController{service: service}

	count := router.PathPrefix("/carts/count").Subrouter()
	count.Use(middleware.OptionalAuth(auth))
	count.HandleFunc("", controller.Count).Methods(http.MethodGet)
	count.HandleFunc("/{slug}", controller.CountForProduct).Methods(http.MethodGet)

	carts := router.PathPrefix("/carts").Subrouter()
	carts.Use(middleware.Auth(auth))
	carts.HandleFunc("", controller.GetCart).Methods(http.MethodGet)
	carts.HandleFunc("", controller.ClearCart).Methods(http.MethodDelete)
	carts.HandleFunc("/clear", controller.ClearCartIfNotEmpty).Methods(http.MethodPost)
	carts.HandleFunc("/total", controller.Total).Methods(http.MethodGet)
	carts.HandleFunc("/items", controller.AddItem).Methods(http.MethodPost)
	carts.HandleFunc("/items", controller.UpdateQuantity).Methods(http.MethodPatch)
	carts.HandleFunc("/items", controller.RemoveItem).Methods(http.MethodDelete)
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, inErrors.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, inErrors.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, inErrors.ErrUnauthenticated),
		errors.Is(err, inErrors.ErrEmptyAuth),
		errors.Is(err, inErrors.ErrEmptySubject),
		errors.Is(err, inErrors.ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, inErrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, inErrors.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (t CartController) fail(
	w http.ResponseWriter,
	r *http.Request,
	span trace.Span,
	logger zerolog.Logger,
	err error,
	data map[string]interface{},
) {
	inOtel.RecordError(err, span)
	logger.Error().Err(err).Msg(err.Error())
	body := map[string]interface{}{
		"status":     inHttp.STATUS_FAILED,
		"statusCode": statusCode(err),
		"message":    err.Error(),
	}
	if data != nil {
		body["data"] = data
	}
	inHttp.WriteJsonResponse(r.Context(), w, map[string]string{}, body)
}

func (t CartController) ownerId(w http.ResponseWriter, r *http.Request, span trace.Span, logger zerolog.Logger) (string, bool) {
	logger.Trace().Msg("getting ownerId from jwtToken")
	ownerId, err := internal.OwnerIdFromJwtToken(r.Context())
	if err != nil {
		err = fmt.Errorf("failed getting ownerId from jwtToken with error=%w", err)
		t.fail(w, r, span, logger, err, nil)
		return "", false
	}
	return ownerId, true
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("failed decoding request body with error=%w: %w", inErrors.ErrInvalidArgument, err)
	}
	return nil
}

func (t CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController GetCart")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CartController GetCart").Logger()
	r = r.WithContext(c)

	ownerId, ok := t.ownerId(w, r, span, logger)
	if !ok {
		return
	}
	logger = logger.With().Str(constants.KEY_USER_ID, ownerId).Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "getting cart").Logger()
	logger.Info().Msg("getting cart")
	c = logger.WithContext(c)
	cart, err := t.service.GetCart(c, ownerId)
	if err != nil {
		err = fmt.Errorf("failed getting cart with error=%w", err)
		t.fail(w, r, span, logger, err, nil)
		return
	}
	logger.Info().Msg("got cart")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     inHttp.STATUS_SUCCESS,
		"statusCode": http.StatusOK,
		"message":    "successfully got cart",
		"data": map[string]interface{}{
			"cart": cart,
		},
	})
}

func (t CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CartController AddItem").Logger()
	r = r.WithContext(c)

	ownerId, ok := t.ownerId(w, r, span, logger)
	if !ok {
		return
	}
	logger = logger.With().Str(constants.KEY_USER_ID, ownerId).Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := request.AddItem{}
	if err := decode(r, &reqBody); err != nil {
		t.fail(w, r, span, logger, err, nil)
		return
	}
	logger.Trace().Msg("decoded request body")

	logger = logger.With().Str(constants.KEY_PROCESS, "adding item").Logger()
	logger.Info().Msg("adding item")
	c = logger.WithContext(c)
	cart, itemCount, err := t.service.AddItem(c, ownerId, reqBody)
	if err != nil {
		err = fmt.Errorf("failed adding item with error=%w", err)
		t.fail(w, r, span, logger, err, nil)
		return
	}
	logger.Info().Int(constants.KEY_CART_ITEMS_COUNT, itemCount).Msg("added item")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     inHttp.STATUS_SUCCESS,
		"statusCode": http.StatusOK,
		"message":    "successfully added item to cart",
		"data": map[string]interface{}{
			"cart":      cart,
			"itemCount": itemCount,
		},
	})
}

func (t CartController) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController UpdateQuantity")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CartController UpdateQuantity").Logger()
	r = r.WithContext(c)

	ownerId, ok := t.ownerId(w, r, span, logger)
	if !ok {
		return
	}
	logger = logger.With().Str(constants.KEY_USER_ID, ownerId).Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := request.UpdateQuantity{}
	if err := decode(r, &reqBody); err != nil {
		t.fail(w, r, span, logger, err, nil)
		return
	}
	logger.Trace().Msg("decoded request body")

	logger = logger.With().Str(constants.KEY_PROCESS, "updating item quantity").Logger()
	logger.Info().Msg("updating item quantity")
	c = logger.WithContext(c)
	cart, action, err := t.service.UpdateQuantity(c, ownerId, reqBody)
	if err != nil {
		err = fmt.Errorf("failed updating item quantity with error=%w", err)
		t.fail(w, r, span, logger, err, map[string]interface{}{
			"itemId":  reqBody.ProductID,
			"variant": reqBody.Variant,
		})
		return
	}
	logger.Info().Str(constants.KEY_CART_ACTION, action).Msg("updated item quantity")

	updatedItem := response.CartItem{ProductID: reqBody.ProductID, Variant: reqBody.Variant}
	if i := cart.IndexOf(reqBody.ProductID, reqBody.Variant); i >= 0 {
		updatedItem = cart.Items[i]
	}
	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     inHttp.STATUS_SUCCESS,
		"statusCode": http.StatusOK,
		"message":    fmt.Sprintf("successfully %s item", action),
		"data": map[string]interface{}{
			"cart":        cart,
			"action":      action,
			"updatedItem": updatedItem,
		},
	})
}

func (t CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController RemoveItem")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CartController RemoveItem").Logger()
	r = r.WithContext(c)

	ownerId, ok := t.ownerId(w, r, span, logger)
	if !ok {
		return
	}
	logger = logger.With().Str(constants.KEY_USER_ID, ownerId).Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := request.RemoveItem{}
	if err := decode(r, &reqBody); err != nil {
		t.fail(w, r, span, logger, err, nil)
		return
	}
	logger.Trace().Msg("decoded request body")

	removedItem := map[string]interface{}{
		"itemId":  reqBody.ProductID,
		"variant": reqBody.Variant,
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "removing item").Logger()
	logger.Info().Msg("removing item")
	c = logger.WithContext(c)
	cart, err := t.service.RemoveItem(c, ownerId, reqBody)
	if err != nil {
		err = fmt.Errorf("failed removing item with error=%w", err)
		t.fail(w, r, span, logger, err, removedItem)
		return
	}
	logger.Info().Msg("removed item")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     inHttp.STATUS_SUCCESS,
		"statusCode": http.StatusOK,
		"message":    "successfully removed item from cart",
		"data": map[string]interface{}{
			"cart":        cart,
			"removedItem": removedItem,
		},
	})
}

func (t CartController) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController ClearCart")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CartController ClearCart").Logger()
	r = r.WithContext(c)

	ownerId, ok := t.ownerId(w, r, span, logger)
	if !ok {
		return
	}
	logger = logger.With().Str(constants.KEY_USER_ID, ownerId).Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "clearing cart").Logger()
	logger.Info().Msg("clearing cart")
	c = logger.WithContext(c)
	cart, err := t.service.ClearCart(c, ownerId)
	if err != nil {
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		t.fail(w, r, span, logger, err, nil)
		return
	}
	logger.Info().Msg("cleared cart")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     inHttp.STATUS_SUCCESS,
		"statusCode": http.StatusOK,
		"message":    "successfully cleared cart",
		"data": map[string]interface{}{
			"cart": cart,
		},
	})
}

// ClearCartIfNotEmpty skips the write when the cart has no lines.
func (t CartController) ClearCartIfNotEmpty(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController ClearCartIfNotEmpty")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CartController ClearCartIfNotEmpty").Logger()
	r = r.WithContext(c)

	ownerId, ok := t.ownerId(w, r, span, logger)
	if !ok {
		return
	}
	logger = logger.With().Str(constants.KEY_USER_ID, ownerId).Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "getting cart").Logger()
	logger.Trace().Msg("getting cart")
	c = logger.WithContext(c)
	cart, err := t.service.GetCart(c, ownerId)
	if err != nil {
		err = fmt.Errorf("failed getting cart with error=%w", err)
		t.fail(w, r, span, logger, err, nil)
		return
	}
	if cart.ItemCount() == 0 {
		logger.Info().Msg("cart is already empty")
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     inHttp.STATUS_SUCCESS,
			"statusCode": http.StatusOK,
			"message":    "cart is already empty",
			"data": map[string]interface{}{
				"cart": cart,
			},
		})
		return
	}

	t.ClearCart(w, r)
}

func (t CartController) Total(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController Total")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(constants.KEY_TAG, "CartController Total").Logger()
	r = r.WithContext(c)

	ownerId, ok := t.ownerId(w, r, span, logger)
	if !ok {
		return
	}
	logger = logger.With().Str(constants.KEY_USER_ID, ownerId).Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "computing cart total").Logger()
	logger.Trace().Msg("computing cart total")
	c = logger.WithContext(c)
	total, err := t.service.Total(c, ownerId)
	if err != nil {
		err = fmt.Errorf("failed computing cart total with error=%w", err)
		t.fail(w, r, span, logger, err, nil)
		return
	}
	logger.Trace().Msg("computed cart total")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     inHttp.STATUS_SUCCESS,
		"statusCode": http.StatusOK,
		"message":    "successfully computed cart total",
		"data":       total,
	})
}

// writeCount always answers 200. A missing identity yields zero and a failure
// yields zero with a failed status.
func (t CartController) writeCount(
	w http.ResponseWriter,
	r *http.Request,
	endpoint string,
	count func(c context.Context, ownerId string) (int, error),
) {
	c, span := otel.Tracer.Start(r.Context(), "CartController "+endpoint)
	defer span.End()

	logger := zerolog.Ctx(c).With().
		Str(constants.KEY_TAG, "CartController writeCount").
		Str("endpoint", endpoint).
		Logger()

	headers := map[string]string{inHttp.KEY_HEADER_CACHE_CONTROL: inHttp.VALUE_HEADER_NO_CACHE}

	ownerId, err := internal.OwnerIdFromJwtToken(c)
	if err != nil {
		metric.CountDegraded.WithLabelValues(endpoint).Inc()
		logger.Debug().Err(err).Msg("no identity answering zero")
		inHttp.WriteJsonResponse(c, w, headers, map[string]interface{}{
			"status":     inHttp.STATUS_SUCCESS,
			"statusCode": http.StatusOK,
			"message":    "no identity",
			"data":       response.Count{Count: 0},
		})
		return
	}
	logger = logger.With().Str(constants.KEY_USER_ID, ownerId).Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "counting items").Logger()
	logger.Trace().Msg("counting items")
	c = logger.WithContext(c)
	value, err := count(c, ownerId)
	if err != nil {
		metric.CountDegraded.WithLabelValues(endpoint).Inc()
		err = fmt.Errorf("failed counting items with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, headers, map[string]interface{}{
			"status":     inHttp.STATUS_FAILED,
			"statusCode": http.StatusOK,
			"message":    err.Error(),
			"data":       response.Count{Count: 0},
		})
		return
	}
	logger.Trace().Int(constants.KEY_CART_COUNT, value).Msg("counted items")

	inHttp.WriteJsonResponse(c, w, headers, map[string]interface{}{
		"status":     inHttp.STATUS_SUCCESS,
		"statusCode": http.StatusOK,
		"message":    "successfully counted items",
		"data":       response.Count{Count: value},
	})
}

func (t CartController) Count(w http.ResponseWriter, r *http.Request) {
	t.writeCount(w, r, ENDPOINT_COUNT, t.service.Count)
}

func (t CartController) CountForProduct(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	t.writeCount(w, r, ENDPOINT_COUNT_FOR_PRODUCT, func(c context.Context, ownerId string) (int, error) {
		return t.service.CountForProduct(c, ownerId, slug)
	})
}
