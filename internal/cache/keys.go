package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// Every physical key carries the tenant schema as a prefix, so a bare logical
// key can never collide across tenants even though the backing Redis is
// shared.

func ProductListKey(schema string) string {
	return fmt.Sprintf("%s:catalog:products:list", schema)
}

func ProductDetailKey(schema string, productID uuid.UUID) string {
	return fmt.Sprintf("%s:catalog:products:%s", schema, productID)
}

func SearchVersionKey(schema string) string {
	return fmt.Sprintf("%s:catalog:products:search:version", schema)
}

func SearchResultKey(schema string, version int64, digest string) string {
	return fmt.Sprintf("%s:catalog:products:search:v%d:%s", schema, version, digest)
}
