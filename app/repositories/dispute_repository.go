package repositories

import (
	"errors"

	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/pkg/feed"
	"github.com/kgyan/makola/pkg/orm"
)

// ErrOrderTerminal reports that the parent order reached a terminal state
// before the dispute write landed.
var ErrOrderTerminal = errors.New("order already terminal")

// DisputeRepository handles dispute rows.
type DisputeRepository struct{}

func NewDisputeRepository() *DisputeRepository {
	return &DisputeRepository{}
}

// FindByID loads one dispute.
func (r *DisputeRepository) FindByID(id uint) (models.Dispute, error) {
	var d models.Dispute
	err := orm.DB().Model(&models.Dispute{}).Where("id = ?", id).First(&d)
	return d, err
}

// CreateWithOrderFlag inserts the dispute and flips the parent order to
// disputed inside one transaction, so there is no window where the dispute
// exists but the order is still in its prior status. Returns
// ErrOrderTerminal, rolling the dispute back, when the order closed in the
// meantime.
func (r *DisputeRepository) CreateWithOrderFlag(dispute *models.Dispute, orders *OrderRepository) error {
	err := orm.Transaction(func(tx *orm.Query) error {
		if err := tx.Create(dispute); err != nil {
			return err
		}
		flipped, err := orders.MarkDisputed(tx, dispute.OrderID)
		if err != nil {
			return err
		}
		if !flipped {
			return ErrOrderTerminal
		}
		return nil
	})
	if err != nil {
		return err
	}

	feed.Publish(feed.Event{Table: "disputes", Kind: feed.Inserted, After: *dispute})
	return nil
}

// UpdateStatus moves a dispute through its workflow.
func (r *DisputeRepository) UpdateStatus(id uint, to models.DisputeStatus, notes string) error {
	values := map[string]interface{}{"status": to}
	if notes != "" {
		values["resolution_notes"] = notes
	}
	_, err := orm.DB().
		Model(&models.Dispute{}).
		Where("id = ?", id).
		Updates(values)
	if err != nil {
		return err
	}

	if d, ferr := r.FindByID(id); ferr == nil {
		feed.Publish(feed.Event{Table: "disputes", Kind: feed.Updated, After: d})
	}
	return nil
}

// ForOrder lists disputes on an order, newest first.
func (r *DisputeRepository) ForOrder(orderID uint) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := orm.DB().
		Model(&models.Dispute{}).
		Where("order_id = ?", orderID).
		Order("created_at desc").
		Get(&disputes)
	return disputes, err
}
