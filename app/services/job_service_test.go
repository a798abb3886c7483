package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/pkg/apperr"
	"github.com/kgyan/makola/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderJob(t *testing.T, orderID uint) models.ShopperJob {
	t.Helper()
	var job models.ShopperJob
	require.NoError(t, database.DB.Where("order_id = ?", orderID).First(&job).Error)
	return job
}

func TestAvailable_ListsUnclaimedOldestFirst(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	first := placeOrder(t, f)
	second := placeOrder(t, f)
	svc := NewJobService()

	jobs, err := svc.Available(f.shopper1.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, first.ID, jobs[0].OrderID)
	assert.Equal(t, second.ID, jobs[1].OrderID)

	// A claimed job drops out of the pool.
	_, err = svc.Accept(f.shopper1.ID, jobs[0].ID)
	require.NoError(t, err)
	jobs, err = svc.Available(f.shopper2.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, second.ID, jobs[0].OrderID)
}

func TestAccept_SecondClaimConflicts(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	job := orderJob(t, order.ID)
	svc := NewJobService()

	won, err := svc.Accept(f.shopper1.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobAccepted, won.Status)
	require.NotNil(t, won.ShopperID)
	assert.Equal(t, f.shopperA.ID, *won.ShopperID)

	_, err = svc.Accept(f.shopper2.ID, job.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// The winner keeps the job.
	kept := orderJob(t, order.ID)
	require.NotNil(t, kept.ShopperID)
	assert.Equal(t, f.shopperA.ID, *kept.ShopperID)
}

func TestAccept_RaceHasExactlyOneWinner(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	job := orderJob(t, order.ID)
	svc := NewJobService()

	racers := []uint{f.shopper1.ID, f.shopper2.ID}
	errs := make([]error, len(racers))
	var wg sync.WaitGroup
	for i, userID := range racers {
		wg.Add(1)
		go func(i int, userID uint) {
			defer wg.Done()
			_, errs[i] = svc.Accept(userID, job.ID)
		}(i, userID)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, apperr.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)
}

func TestAccept_RequiresActiveShopperProfile(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	job := orderJob(t, order.ID)
	svc := NewJobService()

	// No profile at all.
	_, err := svc.Accept(f.consumer.ID, job.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	// Deactivated profile.
	require.NoError(t, database.DB.Model(&models.Shopper{}).
		Where("id = ?", f.shopperA.ID).Update("active", false).Error)
	_, err = svc.Accept(f.shopper1.ID, job.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Accept(f.shopper1.ID, 9999)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestComplete_OwnClaimedJobOnly(t *testing.T) {
	setupDB(t)
	f := seedFixture(t)
	order := placeOrder(t, f)
	job := orderJob(t, order.ID)
	svc := NewJobService()

	// Not claimed yet.
	_, err := svc.Complete(f.shopper1.ID, job.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.Accept(f.shopper1.ID, job.ID)
	require.NoError(t, err)

	// Someone else's claim.
	_, err = svc.Complete(f.shopper2.ID, job.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	done, err := svc.Complete(f.shopper1.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, done.Status)

	// Already settled.
	_, err = svc.Complete(f.shopper1.ID, job.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}
