package constants

const (
	KEY_APP_NAME           = "app"
	KEY_TAG                = "tag"
	KEY_PROCESS            = "process"
	KEY_CONFIG             = "config"
	KEY_REQUEST_ID         = "requestId"
	KEY_TRACE_ID           = "traceId"
	KEY_SPAN_ID            = "spanId"
	KEY_REQUEST            = "request"
	KEY_HEADER             = "header"
	KEY_BODY               = "body"
	KEY_REQUEST_BODY       = "requestBody"
	KEY_REQUEST_HOST       = "host"
	KEY_REQUEST_IP         = "requesterIP"
	KEY_REQUEST_METHOD     = "requestMethod"
	KEY_REQUEST_URI        = "requestURI"
	KEY_REQUEST_URL        = "requestURL"
	KEY_PATH_VALUES        = "pathValues"
	KEY_STATUS_CODE        = "statusCode"
	KEY_TOKEN              = "token"
	KEY_USER_ID            = "userId"
	KEY_CART               = "cart"
	KEY_CART_ITEMS_COUNT   = "cartItemsCount"
	KEY_CART_ITEM_QUANTITY = "cartItemQuantity"
	KEY_CART_ACTION        = "cartAction"
	KEY_CART_COUNT         = "cartCount"
	KEY_CART_TOTAL         = "cartTotal"
	KEY_PRODUCT_ID         = "productId"
	KEY_PRODUCT_SLUG       = "productSlug"
	KEY_VARIANT            = "variant"
	KEY_CACHE_KEY          = "cacheKey"
	KEY_CACHE_DRIVER       = "cacheDriver"
	KEY_ATTEMPT            = "attempt"
	KEY_BASE_URL           = "baseUrl"
	KEY_COUNT_STATE        = "countState"
	KEY_EXPIRES_AT         = "expiresAt"
)
