package repositories

import (
	"errors"
	"time"

	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/pkg/crypt"
	"github.com/kgyan/makola/pkg/feed"
	"github.com/kgyan/makola/pkg/orm"
	"gorm.io/gorm"
)

// PaymentRepository handles payment rows. MoMo phone numbers are encrypted
// at rest and decrypted on the way out.
type PaymentRepository struct{}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{}
}

// FindByID loads one payment with the phone number decrypted.
func (r *PaymentRepository) FindByID(id uint) (models.Payment, error) {
	var p models.Payment
	if err := orm.DB().Model(&models.Payment{}).Where("id = ?", id).First(&p); err != nil {
		return p, err
	}
	r.decryptPhone(&p)
	return p, nil
}

// OpenForOrder returns the pending/processing payment for an order, if any.
func (r *PaymentRepository) OpenForOrder(orderID uint) (*models.Payment, error) {
	var p models.Payment
	err := orm.DB().
		Model(&models.Payment{}).
		Where("order_id = ? AND status IN ?", orderID, []models.PaymentStatus{
			models.PaymentPending, models.PaymentProcessing,
		}).
		First(&p)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.decryptPhone(&p)
	return &p, nil
}

// CreateIfNoneOpen inserts payment unless the order already has an open
// one. The transaction first takes a write lock on the order row, so two
// concurrent initiations serialise even on MVCC backends where both would
// otherwise read "no open payment". Returns the already-open payment when
// the guard trips.
func (r *PaymentRepository) CreateIfNoneOpen(payment *models.Payment) (*models.Payment, error) {
	plainPhone := payment.MomoPhone
	if enc, err := crypt.Encrypt(plainPhone); err == nil {
		payment.MomoPhone = enc
	}

	var existing *models.Payment
	err := orm.Transaction(func(tx *orm.Query) error {
		// Touching the order row locks it until commit. SELECT FOR UPDATE
		// would do the same but is not valid sqlite.
		if _, lerr := tx.
			Model(&models.Order{}).
			Where("id = ?", payment.OrderID).
			Updates(map[string]interface{}{"updated_at": time.Now()}); lerr != nil {
			return lerr
		}

		var open models.Payment
		ferr := tx.
			Model(&models.Payment{}).
			Where("order_id = ? AND status IN ?", payment.OrderID, []models.PaymentStatus{
				models.PaymentPending, models.PaymentProcessing,
			}).
			First(&open)
		if ferr == nil {
			existing = &open
			return nil
		}
		if !errors.Is(ferr, gorm.ErrRecordNotFound) {
			return ferr
		}
		return tx.Create(payment)
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		r.decryptPhone(existing)
		return existing, nil
	}

	payment.MomoPhone = plainPhone
	feed.Publish(feed.Event{Table: "payments", Kind: feed.Inserted, After: *payment})
	return nil, nil
}

// CompletedForOrder reports whether the order has a confirmed payment.
func (r *PaymentRepository) CompletedForOrder(orderID uint) (bool, error) {
	n, err := orm.DB().
		Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, models.PaymentCompleted).
		Count()
	return n > 0, err
}

// ForOrder lists every payment attempt against an order, newest first.
func (r *PaymentRepository) ForOrder(orderID uint) ([]models.Payment, error) {
	var out []models.Payment
	err := orm.DB().
		Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Get(&out)
	for i := range out {
		r.decryptPhone(&out[i])
	}
	return out, err
}

// Advance conditionally moves a payment from one status to another,
// optionally recording the provider's reference. Zero rows affected means
// the payment was not in the expected source status.
func (r *PaymentRepository) Advance(id uint, from, to models.PaymentStatus, providerRef string) (bool, error) {
	values := map[string]interface{}{"status": to}
	if providerRef != "" {
		values["provider_ref"] = providerRef
	}

	n, err := orm.DB().
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if err != nil || n == 0 {
		return false, err
	}

	if p, ferr := r.FindByID(id); ferr == nil {
		feed.Publish(feed.Event{Table: "payments", Kind: feed.Updated, After: p})
	}
	return true, nil
}

func (r *PaymentRepository) decryptPhone(p *models.Payment) {
	if plain, err := crypt.Decrypt(p.MomoPhone); err == nil {
		p.MomoPhone = plain
	}
}
