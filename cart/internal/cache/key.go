package cache

import "fmt"

const KEY_CART_BY_USER_ID = "cart:user:%s"

func CartKey(ownerId string) string {
	return fmt.Sprintf(KEY_CART_BY_USER_ID, ownerId)
}
