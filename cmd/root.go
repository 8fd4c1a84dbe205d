package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	cartCmd "github.com/Alturino/storefront/cart/cmd"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/log"
)

func Start() {
	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Get(c, constants.APP_CART_SERVICE)
	logger := log.Get(filepath.Join(cfg.Application.LogDir, "storefront.log"), cfg.Application).
		With().
		Str(constants.KEY_APP_NAME, constants.APP_MAIN_STOREFRONT).
		Str(constants.KEY_TAG, "main Start").
		Logger()
	logger.Info().Msg("added listener for SIGINT and SIGTERM")

	c = logger.WithContext(c)

	rootCmd := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront cart service and tools",
	}
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "cart",
			Short: "Run cart service",
			Run: func(cmd *cobra.Command, args []string) {
				cartCmd.RunCartService(cmd.Context(), cfg)
			},
		},
		newCountCommand(),
		newTokenCommand(cfg.Auth),
	)
	if err := rootCmd.ExecuteContext(c); err != nil {
		logger.Fatal().Err(err).Msgf("error when executing command=%s", err.Error())
	}
}
