package repositories

import (
	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/pkg/feed"
	"github.com/kgyan/makola/pkg/orm"
)

// SubstitutionRepository handles substitution requests.
type SubstitutionRepository struct{}

func NewSubstitutionRepository() *SubstitutionRepository {
	return &SubstitutionRepository{}
}

// FindByID loads one substitution request.
func (r *SubstitutionRepository) FindByID(id uint) (models.SubstitutionRequest, error) {
	var s models.SubstitutionRequest
	err := orm.DB().Model(&models.SubstitutionRequest{}).Where("id = ?", id).First(&s)
	return s, err
}

// Create inserts a new pending request.
func (r *SubstitutionRepository) Create(req *models.SubstitutionRequest) error {
	if err := orm.DB().Create(req); err != nil {
		return err
	}
	feed.Publish(feed.Event{Table: "substitution_requests", Kind: feed.Inserted, After: *req})
	return nil
}

// Respond resolves a pending request. The condition on status makes the
// response exclusive — only the first responder wins.
func (r *SubstitutionRepository) Respond(id uint, to models.SubstitutionStatus, responderID uint, note string) (bool, error) {
	n, err := orm.DB().
		Model(&models.SubstitutionRequest{}).
		Where("id = ? AND status = ?", id, models.SubstitutionPending).
		Updates(map[string]interface{}{
			"status":        to,
			"responder_id":  responderID,
			"response_note": note,
		})
	if err != nil || n == 0 {
		return false, err
	}

	if s, ferr := r.FindByID(id); ferr == nil {
		feed.Publish(feed.Event{Table: "substitution_requests", Kind: feed.Updated, After: s})
	}
	return true, nil
}

// PendingForOrder lists unresolved requests on an order.
func (r *SubstitutionRepository) PendingForOrder(orderID uint) ([]models.SubstitutionRequest, error) {
	var reqs []models.SubstitutionRequest
	err := orm.DB().
		Model(&models.SubstitutionRequest{}).
		Where("order_id = ? AND status = ?", orderID, models.SubstitutionPending).
		Order("created_at asc").
		Get(&reqs)
	return reqs, err
}
