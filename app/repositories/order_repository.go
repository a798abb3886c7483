package repositories

import (
	"fmt"
	"math"
	"time"

	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/pkg/cache"
	"github.com/kgyan/makola/pkg/feed"
	"github.com/kgyan/makola/pkg/orm"
	"gorm.io/gorm"
)

// OrderRepository handles database operations for orders and their items.
type OrderRepository struct{}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{}
}

func orderCacheKey(id uint) string { return fmt.Sprintf("orders:%d", id) }

// FindByID loads an order with its items.
func (r *OrderRepository) FindByID(id uint) (models.Order, error) {
	var order models.Order
	err := orm.DB().
		Model(&models.Order{}).
		Preload("Items").
		Where("id = ?", id).
		First(&order)
	return order, err
}

// CreateWithChildren persists the order, its items, and the shopper job as
// one transaction. Either everything lands or nothing does — an order can
// never exist without its items.
func (r *OrderRepository) CreateWithChildren(order *models.Order, job *models.ShopperJob) error {
	err := orm.Transaction(func(tx *orm.Query) error {
		if err := tx.Create(order); err != nil {
			return err
		}
		job.OrderID = order.ID
		return tx.Create(job)
	})
	if err != nil {
		return err
	}

	feed.Publish(feed.Event{Table: "orders", Kind: feed.Inserted, After: *order})
	feed.Publish(feed.Event{Table: "shopper_jobs", Kind: feed.Inserted, After: *job})
	return nil
}

// TransitionStatus conditionally moves an order from one status to another.
// The WHERE clause on the current status makes the write race-safe: zero
// rows affected means the order moved underneath the caller.
func (r *OrderRepository) TransitionStatus(id uint, from, to models.OrderStatus, extra map[string]interface{}) (bool, error) {
	before, err := r.FindByID(id)
	if err != nil {
		return false, err
	}

	values := map[string]interface{}{"status": to}
	for k, v := range extra {
		values[k] = v
	}

	n, err := orm.DB().
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if err != nil || n == 0 {
		return false, err
	}

	cache.Del(orderCacheKey(id))

	after, err := r.FindByID(id)
	if err == nil {
		feed.Publish(feed.Event{Table: "orders", Kind: feed.Updated, Before: before, After: after})
	}
	return true, nil
}

// MarkDisputed flips an order to disputed inside tx. It interrupts any
// active state but never a terminal one; zero rows changed means the order
// closed between the caller's check and this write.
func (r *OrderRepository) MarkDisputed(tx *orm.Query, id uint) (bool, error) {
	n, err := tx.
		Model(&models.Order{}).
		Where("id = ? AND status NOT IN ?", id, []models.OrderStatus{
			models.OrderCompleted, models.OrderCancelled, models.OrderDisputed,
		}).
		Updates(map[string]interface{}{"status": models.OrderDisputed})
	if err != nil {
		return false, err
	}
	if n > 0 {
		cache.Del(orderCacheKey(id))
	}
	return n > 0, nil
}

// ForConsumer lists a consumer's orders, newest first, cached briefly —
// the checkout page polls this.
func (r *OrderRepository) ForConsumer(consumerID uint) ([]models.Order, error) {
	var orders []models.Order
	err := orm.DB().
		Model(&models.Order{}).
		Where("consumer_id = ?", consumerID).
		Order("created_at desc").
		Cache(fmt.Sprintf("orders:consumer:%d", consumerID), 5*time.Second, &orders)
	return orders, err
}

// ForVendor lists a vendor's orders with pagination.
func (r *OrderRepository) ForVendor(vendorID uint, page, perPage int) ([]models.Order, orm.Pagination, error) {
	var orders []models.Order
	pagination, err := orm.DB().
		Model(&models.Order{}).
		Where("vendor_id = ?", vendorID).
		Order("created_at desc").
		GetWithPagination(&orders, page, perPage)
	return orders, pagination, err
}

// ApplySubstitution rewrites one item snapshot and reprices the order and
// its shopper job in a single transaction.
func (r *OrderRepository) ApplySubstitution(orderID, itemID uint, name string, qty int, unitPrice float64) error {
	round := func(v float64) float64 { return math.Round(v*100) / 100 }

	before, err := r.FindByID(orderID)
	if err != nil {
		return err
	}

	err = orm.Transaction(func(tx *orm.Query) error {
		lineTotal := round(float64(qty) * unitPrice)
		n, uerr := tx.
			Model(&models.OrderItem{}).
			Where("id = ? AND order_id = ?", itemID, orderID).
			Updates(map[string]interface{}{
				"product_name": name,
				"quantity":     qty,
				"unit_price":   unitPrice,
				"line_total":   lineTotal,
			})
		if uerr != nil {
			return uerr
		}
		if n == 0 {
			return gorm.ErrRecordNotFound
		}

		var items []models.OrderItem
		if gerr := tx.Model(&models.OrderItem{}).Where("order_id = ?", orderID).Get(&items); gerr != nil {
			return gerr
		}
		subtotal := 0.0
		for _, it := range items {
			subtotal += it.LineTotal
		}
		subtotal = round(subtotal)
		fee := round(subtotal * 0.10)

		if _, uerr := tx.
			Model(&models.Order{}).
			Where("id = ?", orderID).
			Updates(map[string]interface{}{
				"subtotal":    subtotal,
				"shopper_fee": fee,
				"total":       round(subtotal + fee),
			}); uerr != nil {
			return uerr
		}

		_, uerr = tx.
			Model(&models.ShopperJob{}).
			Where("order_id = ?", orderID).
			Updates(map[string]interface{}{"commission": fee})
		return uerr
	})
	if err != nil {
		return err
	}

	cache.Del(orderCacheKey(orderID))
	if after, ferr := r.FindByID(orderID); ferr == nil {
		feed.Publish(feed.Event{Table: "orders", Kind: feed.Updated, Before: before, After: after})
	}
	return nil
}

// FindItem loads one order item.
func (r *OrderRepository) FindItem(itemID uint) (models.OrderItem, error) {
	var item models.OrderItem
	err := orm.DB().Model(&models.OrderItem{}).Where("id = ?", itemID).First(&item)
	return item, err
}
