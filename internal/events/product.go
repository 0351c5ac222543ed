package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mbertozzi/storefront/internal/cache"
	"github.com/mbertozzi/storefront/internal/notify"
	"github.com/mbertozzi/storefront/internal/search"
	"github.com/mbertozzi/storefront/internal/store"
)

// RegisterProductReactions wires the product side effects: cache
// invalidation, search index sync, and staff notification on create.
func RegisterProductReactions(p *Pipeline, catalog *cache.Catalog, index search.Index, tenants store.TenantStore, hub *notify.Hub) {
	p.Register(KindProduct,
		Reaction{Name: "cache_invalidate", Fn: invalidateProductCache(catalog)},
		Reaction{Name: "search_sync", Fn: syncProductIndex(index)},
		Reaction{Name: "notify_staff", Fn: notifyStaffOnCreate(tenants, hub)},
	)
}

func invalidateProductCache(catalog *cache.Catalog) func(context.Context, Mutation) error {
	return func(ctx context.Context, m Mutation) error {
		return catalog.InvalidateProduct(ctx, m.Tenant.Schema, m.ID)
	}
}

func syncProductIndex(index search.Index) func(context.Context, Mutation) error {
	return func(ctx context.Context, m Mutation) error {
		if m.Op == OpDelete {
			return index.DeleteProduct(ctx, m.Tenant.Schema, m.ID)
		}
		return index.IndexProduct(ctx, m.Tenant.Schema, m.Product)
	}
}

// notifyStaffOnCreate stores a notification row for every staff user in the
// tenant and pushes it to any of their live websocket sessions. Updates and
// deletes stay quiet.
func notifyStaffOnCreate(tenants store.TenantStore, hub *notify.Hub) func(context.Context, Mutation) error {
	return func(ctx context.Context, m Mutation) error {
		if m.Op != OpCreate {
			return nil
		}

		message := fmt.Sprintf("New product created: %s", m.Product.Name)
		createdAt := time.Now().UTC()

		var staffIDs []uuid.UUID
		err := tenants.WithSchema(ctx, m.Tenant.Schema, func(sess store.Session) error {
			ids, err := sess.StaffUserIDs(ctx)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				return nil
			}
			staffIDs = ids
			return sess.CreateNotifications(ctx, ids, message, createdAt)
		})
		if err != nil {
			return fmt.Errorf("store staff notifications: %w", err)
		}

		ev := notify.Event{Message: message, CreatedAt: createdAt}
		for _, id := range staffIDs {
			hub.Publish(notify.UserGroup(m.Tenant.Schema, id), ev)
		}
		return nil
	}
}
