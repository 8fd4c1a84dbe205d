package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/cart/pkg/client"
	"github.com/Alturino/storefront/internal/constants"
)

type countOptions struct {
	url      string
	token    string
	products []string
	interval time.Duration
}

func newCountCommand() *cobra.Command {
	opts := countOptions{}
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Refresh and print cart counts from a running cart service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.url, "url", "http://localhost:8080", "cart service base url")
	cmd.Flags().StringVar(&opts.token, "token", "", "bearer token of the shopper")
	cmd.Flags().StringSliceVar(&opts.products, "product", nil, "product id or slug to count, repeatable")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "refresh every interval until interrupted, 0 refreshes once")
	return cmd
}

func refreshAll(c context.Context, cache *client.CountCache, products []string) {
	var wg sync.WaitGroup
	wg.Add(1 + len(products))
	go func() {
		defer wg.Done()
		_, _ = cache.RefreshTotal(c)
	}()
	for _, product := range products {
		go func() {
			defer wg.Done()
			_, _ = cache.RefreshForProduct(c, product)
		}()
	}
	wg.Wait()
}

func runCount(cmd *cobra.Command, opts countOptions) error {
	c := cmd.Context()
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_APP_NAME, constants.APP_COUNT_CLIENT).
		Str(constants.KEY_TAG, "main runCount").
		Str(constants.KEY_BASE_URL, opts.url).
		Logger()
	c = logger.WithContext(c)

	cache := client.NewCountCache(client.NewClient(opts.url, opts.token, nil))
	encoder := json.NewEncoder(cmd.OutOrStdout())

	report := func() error {
		state := cache.Snapshot()
		logger.Info().Any(constants.KEY_COUNT_STATE, state).Msg("refreshed counts")
		if state.LastError != nil {
			logger.Warn().Err(state.LastError).Msg("last refresh failed")
		}
		if err := encoder.Encode(state); err != nil {
			return fmt.Errorf("failed printing counts with error=%w", err)
		}
		return nil
	}

	refreshAll(c, cache, opts.products)
	if err := report(); err != nil {
		return err
	}
	if opts.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.Done():
			return nil
		case <-ticker.C:
			refreshAll(c, cache, opts.products)
			if err := report(); err != nil {
				return err
			}
		}
	}
}
