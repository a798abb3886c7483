package repositories

import (
	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/pkg/feed"
	"github.com/kgyan/makola/pkg/orm"
)

// JobRepository handles the shopper job pool.
type JobRepository struct{}

func NewJobRepository() *JobRepository {
	return &JobRepository{}
}

// FindByID loads one job.
func (r *JobRepository) FindByID(id uint) (models.ShopperJob, error) {
	var job models.ShopperJob
	err := orm.DB().Model(&models.ShopperJob{}).Where("id = ?", id).First(&job)
	return job, err
}

// FindByOrder loads the job tied to an order.
func (r *JobRepository) FindByOrder(orderID uint) (models.ShopperJob, error) {
	var job models.ShopperJob
	err := orm.DB().Model(&models.ShopperJob{}).Where("order_id = ?", orderID).First(&job)
	return job, err
}

// Available lists unassigned jobs, oldest first.
func (r *JobRepository) Available() ([]models.ShopperJob, error) {
	var jobs []models.ShopperJob
	err := orm.DB().
		Model(&models.ShopperJob{}).
		Where("shopper_id IS NULL AND status = ?", models.JobAvailable).
		Order("created_at asc, id asc").
		Get(&jobs)
	return jobs, err
}

// Claim assigns the job to a shopper if and only if it is still unclaimed.
// The store is the arbiter of the race: whichever shopper's UPDATE matches
// the still-unassigned row wins, everyone else sees zero rows affected.
func (r *JobRepository) Claim(jobID, shopperID uint) (bool, error) {
	n, err := orm.DB().
		Model(&models.ShopperJob{}).
		Where("id = ? AND shopper_id IS NULL AND status = ?", jobID, models.JobAvailable).
		Updates(map[string]interface{}{
			"shopper_id": shopperID,
			"status":     models.JobAccepted,
		})
	if err != nil || n == 0 {
		return false, err
	}

	if job, ferr := r.FindByID(jobID); ferr == nil {
		feed.Publish(feed.Event{Table: "shopper_jobs", Kind: feed.Updated, After: job})
	}
	return true, nil
}

// Complete marks an accepted job done, only for the shopper who holds it.
func (r *JobRepository) Complete(jobID, shopperID uint) (bool, error) {
	n, err := orm.DB().
		Model(&models.ShopperJob{}).
		Where("id = ? AND shopper_id = ? AND status = ?", jobID, shopperID, models.JobAccepted).
		Updates(map[string]interface{}{"status": models.JobCompleted})
	if err != nil || n == 0 {
		return false, err
	}

	if job, ferr := r.FindByID(jobID); ferr == nil {
		feed.Publish(feed.Event{Table: "shopper_jobs", Kind: feed.Updated, After: job})
	}
	return true, nil
}
