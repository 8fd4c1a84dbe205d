package constants

const (
	APP_CART_SERVICE    = "cart-service"
	APP_COUNT_CLIENT    = "cart-count-client"
	APP_TOKEN_ISSUER    = "token-issuer"
	APP_MAIN_STOREFRONT = "main storefront"
)
