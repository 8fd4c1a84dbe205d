package http

const (
	KEY_HEADER_CONTENT_TYPE  = "Content-Type"
	KEY_HEADER_REQUEST_ID    = "X-Request-Id"
	KEY_HEADER_AUTHORIZATION = "Authorization"
	KEY_HEADER_CACHE_CONTROL = "Cache-Control"

	VALUE_HEADER_APPLICATION_JSON = "application/json"
	VALUE_HEADER_NO_CACHE         = "no-cache"
	VALUE_BEARER_PREFIX           = "Bearer "
)

const (
	STATUS_SUCCESS = "success"
	STATUS_FAILED  = "failed"
)
