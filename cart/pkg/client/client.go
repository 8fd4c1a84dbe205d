package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/internal/constants"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	inOtel "github.com/Alturino/storefront/internal/otel"
)

var ErrCountUnavailable = errors.New("cart count unavailable")

// CountQuerier answers the count endpoints of the cart service.
type CountQuerier interface {
	Count(c context.Context) (int, error)
	CountForProduct(c context.Context, productId string) (int, error)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient returns a client for the cart service at baseURL. token may be
// empty, in which case the service answers every count with zero. A nil
// httpClient uses an otelhttp instrumented client.
func NewClient(baseURL string, token string, httpClient *http.Client) Client {
	if httpClient == nil {
		httpClient = otelhttp.DefaultClient
	}
	return Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

type countResponse struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       struct {
		Count int `json:"count"`
	} `json:"data"`
}

func (cl Client) Count(c context.Context) (int, error) {
	return cl.get(c, "/carts/count")
}

func (cl Client) CountForProduct(c context.Context, productId string) (int, error) {
	return cl.get(c, "/carts/count/"+url.PathEscape(productId))
}

func (cl Client) get(c context.Context, path string) (int, error) {
	c, span := otel.Tracer.Start(c, "Client get")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Client get").
		Str(constants.KEY_BASE_URL, cl.baseURL).
		Str(constants.KEY_REQUEST_URI, path).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "requesting count").Logger()
	logger.Trace().Msg("requesting count")
	req, err := http.NewRequestWithContext(c, http.MethodGet, cl.baseURL+path, nil)
	if err != nil {
		err = fmt.Errorf("failed creating count request with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return 0, err
	}
	req.Header.Set(inHttp.KEY_HEADER_CACHE_CONTROL, inHttp.VALUE_HEADER_NO_CACHE)
	if cl.token != "" {
		req.Header.Set(inHttp.KEY_HEADER_AUTHORIZATION, inHttp.VALUE_BEARER_PREFIX+cl.token)
	}
	if requestId := log.RequestIDFromContext(c); requestId != "" {
		req.Header.Set(inHttp.KEY_HEADER_REQUEST_ID, requestId)
	}

	resp, err := cl.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed requesting count with error=%w: %w", ErrCountUnavailable, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return 0, err
	}
	defer resp.Body.Close()
	logger = logger.With().Int(constants.KEY_STATUS_CODE, resp.StatusCode).Logger()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		err = fmt.Errorf("failed requesting count status=%d with error=%w", resp.StatusCode, ErrCountUnavailable)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return 0, err
	}

	body := countResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		err = fmt.Errorf("failed decoding count response with error=%w: %w", ErrCountUnavailable, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return 0, err
	}
	if body.Status != inHttp.STATUS_SUCCESS {
		err = fmt.Errorf("failed requesting count message=%q with error=%w", body.Message, ErrCountUnavailable)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return 0, err
	}
	logger.Trace().Int(constants.KEY_CART_COUNT, body.Data.Count).Msg("requested count")

	return body.Data.Count, nil
}
