package controllers

import (
	"net/http"

	"github.com/kgyan/makola/app/services"
	"github.com/kgyan/makola/pkg/middleware"
	"github.com/kgyan/makola/pkg/response"
)

type JobController struct {
	jobs *services.JobService
}

func NewJobController() *JobController {
	return &JobController{jobs: services.NewJobService()}
}

func (c *JobController) Available(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	jobs, err := c.jobs.Available(userID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, jobs)
}

func (c *JobController) Accept(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	job, err := c.jobs.Accept(userID, paramUint(r, "id"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, job)
}

func (c *JobController) Complete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromCtx(r.Context())

	job, err := c.jobs.Complete(userID, paramUint(r, "id"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, job)
}
