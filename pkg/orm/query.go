// Package orm is a thin fluent wrapper over GORM used by repositories.
//
// It exists so application code never touches *gorm.DB directly outside
// migrations, and so read queries can opt into the Redis cache:
//
//	var order models.Order
//	err := orm.DB().Model(&models.Order{}).Where("id = ?", id).First(&order)
package orm

import (
	"time"

	"github.com/kgyan/makola/pkg/database"
	"gorm.io/gorm"
)

// Cacher is the read-through cache contract. Wired at boot to pkg/cache;
// kept as an interface so orm does not import redis.
type Cacher interface {
	Get(key string, dest interface{}) bool
	Set(key string, value interface{}, ttl time.Duration) error
}

// CacheStore is the process-wide cache used by Query.Cache. Nil disables
// caching (queries always hit the database).
var CacheStore Cacher

// Query is an immutable query builder; every method returns a new Query.
type Query struct {
	db *gorm.DB
}

// DB returns a Query bound to the global database connection.
func DB() *Query {
	return &Query{db: database.DB}
}

// Wrap binds a Query to an explicit *gorm.DB, usually a transaction handle.
func Wrap(db *gorm.DB) *Query {
	return &Query{db: db}
}

func (q *Query) Model(v interface{}) *Query {
	return &Query{db: q.db.Model(v)}
}

func (q *Query) Where(query string, args ...interface{}) *Query {
	return &Query{db: q.db.Where(query, args...)}
}

func (q *Query) Order(value string) *Query {
	return &Query{db: q.db.Order(value)}
}

func (q *Query) Limit(n int) *Query {
	return &Query{db: q.db.Limit(n)}
}

func (q *Query) Preload(association string) *Query {
	return &Query{db: q.db.Preload(association)}
}

// Get loads all matching rows into dest.
func (q *Query) Get(dest interface{}) error {
	return q.db.Find(dest).Error
}

// First loads the first matching row. Returns gorm.ErrRecordNotFound when
// nothing matches.
func (q *Query) First(dest interface{}) error {
	return q.db.First(dest).Error
}

// Count returns the number of matching rows.
func (q *Query) Count() (int64, error) {
	var n int64
	err := q.db.Count(&n).Error
	return n, err
}

// Create inserts value.
func (q *Query) Create(value interface{}) error {
	return q.db.Create(value).Error
}

// Save upserts value by primary key.
func (q *Query) Save(value interface{}) error {
	return q.db.Save(value).Error
}

// Updates applies a column map to all matching rows and returns how many
// rows changed. Conditional writes (job accept, status transitions) rely on
// that count: zero means someone else won the race.
func (q *Query) Updates(values interface{}) (int64, error) {
	res := q.db.Updates(values)
	return res.RowsAffected, res.Error
}

// Delete removes matching rows (soft delete under gorm.Model).
func (q *Query) Delete(value interface{}) (int64, error) {
	res := q.db.Delete(value)
	return res.RowsAffected, res.Error
}

// Transaction runs fn inside a database transaction. The Query passed to fn
// is bound to the transaction handle; any error rolls everything back.
func Transaction(fn func(tx *Query) error) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		return fn(Wrap(tx))
	})
}

// Cache reads dest from CacheStore under key, falling back to the database
// and populating the cache on a miss.
func (q *Query) Cache(key string, ttl time.Duration, dest interface{}) error {
	if CacheStore != nil && CacheStore.Get(key, dest) {
		return nil
	}

	if err := q.db.Find(dest).Error; err != nil {
		return err
	}

	if CacheStore != nil {
		_ = CacheStore.Set(key, dest, ttl)
	}
	return nil
}

// ── Pagination ───────────────────────────────────────────────────────────────

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// GetWithPagination loads one page of matching rows into dest.
func (q *Query) GetWithPagination(dest interface{}, page, perPage int) (Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	total, err := q.Count()
	if err != nil {
		return Pagination{}, err
	}

	offset := (page - 1) * perPage
	if err := q.db.Offset(offset).Limit(perPage).Find(dest).Error; err != nil {
		return Pagination{}, err
	}

	pages := int(total) / perPage
	if int(total)%perPage != 0 {
		pages++
	}

	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: pages}, nil
}
