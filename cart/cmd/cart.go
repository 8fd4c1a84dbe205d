package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/Alturino/storefront/cart/internal/controller"
	cartOtel "github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/internal/repository"
	"github.com/Alturino/storefront/cart/internal/service"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/infra"
	"github.com/Alturino/storefront/internal/middleware"
	"github.com/Alturino/storefront/internal/otel"
)

func newStore(c context.Context, cfg config.Cache) (repository.Store, func() error, error) {
	if cfg.Driver == config.CACHE_DRIVER_MEMORY {
		return repository.NewMemoryStore(time.Now), func() error { return nil }, nil
	}
	cache, err := infra.NewCacheClient(c, cfg)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewRedisStore(cache), cache.Close, nil
}

func attachOpsHandlers(router *mux.Router, svc *service.CartService) {
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		c := r.Context()
		if err := svc.Ping(c); err != nil {
			inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
				"status":     inHttp.STATUS_FAILED,
				"statusCode": http.StatusServiceUnavailable,
				"message":    err.Error(),
			})
			return
		}
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     inHttp.STATUS_SUCCESS,
			"statusCode": http.StatusOK,
			"message":    "ok",
		})
	}).Methods(http.MethodGet)
}

func RunCartService(c context.Context, cfg *config.Config) {
	c, span := cartOtel.Tracer.Start(c, "RunCartService")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_APP_NAME, constants.APP_CART_SERVICE).
		Str(constants.KEY_TAG, "main RunCartService").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	c = logger.WithContext(c)
	otelShutdowns, err := otel.InitOtelSdk(c, constants.APP_CART_SERVICE, cfg.Otel)
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer func() {
		logger.Info().Msg("shutting down otel")
		if err := otel.ShutdownOtel(context.WithoutCancel(c), otelShutdowns); err != nil {
			err = fmt.Errorf("failed shutting down otel with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown otel")
	}()
	logger.Info().Msg("initialized otel sdk")

	logger = logger.With().
		Str(constants.KEY_PROCESS, "initializing cart store").
		Str(constants.KEY_CACHE_DRIVER, cfg.Cache.Driver).
		Logger()
	logger.Info().Msg("initializing cart store")
	c = logger.WithContext(c)
	store, closeStore, err := newStore(c, cfg.Cache)
	if err != nil {
		err = fmt.Errorf("failed initializing cart store with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer func() {
		logger.Info().Msg("shutting down cart store")
		if err := closeStore(); err != nil {
			err = fmt.Errorf("failed shutting down cart store with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown cart store")
	}()
	logger.Info().Msg("initialized cart store")

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing cart service").Logger()
	logger.Info().Msg("initializing cart service")
	cartRepository := repository.NewCartRepository(
		store,
		repository.WithTTL(cfg.Cart.TTL),
		repository.WithMaxRetries(cfg.Cart.MaxRetries),
	)
	cartService := service.NewCartService(cartRepository, cfg.Cart.Currency)
	logger.Info().Dur("ttl", cartRepository.TTL()).Msg("initialized cart service")

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing router").Logger()
	logger.Info().Msg("initializing router")
	router := mux.NewRouter()
	router.Use(
		otelmux.Middleware(constants.APP_CART_SERVICE),
		middleware.Logging,
		middleware.RecoverPanic,
	)
	attachOpsHandlers(router, &cartService)
	controller.AttachCartController(router, &cartService, cfg.Auth)
	logger.Info().Msg("initialized router")

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing server").Logger()
	logger.Info().Msg("initializing server")
	httpServer := http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Application.Host, cfg.Application.Port),
		BaseContext:  func(net.Listener) context.Context { return c },
		Handler:      router,
		ReadTimeout:  45 * time.Second,
		WriteTimeout: 45 * time.Second,
	}
	logger.Info().Msg("initialized server")

	serverErr := make(chan error, 1)
	go func() {
		logger := logger.With().Str(constants.KEY_PROCESS, "start server").Logger()
		logger.Info().Msgf("start listening request at %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("error=%w occured while server is running", err)
			return
		}
		logger.Info().Msg("shutdown server")
	}()

	select {
	case err := <-serverErr:
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	case <-c.Done():
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "shutting down http server").Logger()
	logger.Info().Msg("received interruption signal shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(c), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		err = fmt.Errorf("failed shutting down http server with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("shutdown http server")
}
