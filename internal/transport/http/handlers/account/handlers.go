package accounthandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lessonmanager/internal/domain/account"
	"lessonmanager/internal/domain/auth"
	"lessonmanager/internal/platform/identity"
	"lessonmanager/internal/platform/jobs"
	"lessonmanager/internal/transport/http/api"
	"lessonmanager/internal/transport/http/middleware"
)

type Handler struct {
	Scheduler *account.Scheduler
	Executor  *account.Executor
	Identity  identity.Provider
	Jobs      *jobs.Service
	GraceDays int
}

func NewHandler(scheduler *account.Scheduler, executor *account.Executor, provider identity.Provider, jobsSvc *jobs.Service, graceDays int) *Handler {
	return &Handler{
		Scheduler: scheduler,
		Executor:  executor,
		Identity:  provider,
		Jobs:      jobsSvc,
		GraceDays: graceDays,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/account/deletion", func(r chi.Router) {
		r.Post("/schedule", h.HandleSchedule)
		r.Post("/cancel", h.HandleCancel)
		r.Get("/status", h.HandleStatus)
		r.Post("/execute", h.HandleExecute)
	})
	r.Post("/admin/deletion/sweep", h.HandleSweep)
}

type schedulePayload struct {
	GracePeriodDays int `json:"gracePeriodDays"`
}

type executePayload struct {
	Password string `json:"password"`
}

type statusResponse struct {
	IsScheduled   bool       `json:"isScheduled"`
	ScheduledDate *time.Time `json:"scheduledDate"`
	RemainingDays int        `json:"remainingDays"`
}

func (h *Handler) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	payload := schedulePayload{GracePeriodDays: h.GraceDays}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
			return
		}
	}
	if payload.GracePeriodDays < 0 || payload.GracePeriodDays > 365 {
		api.Fail(w, http.StatusBadRequest, "invalid_grace_period", "gracePeriodDays must be between 0 and 365", requestID)
		return
	}

	displayName := h.displayName(r.Context(), user)
	record, err := h.Scheduler.Schedule(r.Context(), user.UserID, user.Email, displayName, payload.GracePeriodDays)
	if err != nil {
		api.Fail(w, http.StatusServiceUnavailable, "schedule_failed", "could not schedule deletion, please try again", requestID)
		return
	}
	api.Created(w, record, requestID)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	if err := h.Scheduler.Cancel(r.Context(), user.UserID); err != nil {
		api.Fail(w, http.StatusServiceUnavailable, "cancel_failed", "could not cancel deletion, please try again", requestID)
		return
	}
	api.Success(w, map[string]any{"cancelled": true}, requestID)
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	record, err := h.Scheduler.Record(r.Context(), user.UserID)
	if err != nil {
		api.Fail(w, http.StatusServiceUnavailable, "status_failed", "could not load deletion status, please try again", requestID)
		return
	}

	status := account.Resolve(record, time.Now())
	api.Success(w, statusResponse{
		IsScheduled:   status.IsScheduled,
		ScheduledDate: status.ScheduledDate,
		RemainingDays: status.RemainingDays,
	}, requestID)
}

func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	var payload executePayload
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
			return
		}
	}

	anonymized, err := h.Executor.Execute(r.Context(), user.UserID, payload.Password)
	switch {
	case errors.Is(err, account.ErrReauthRequired):
		api.Fail(w, http.StatusBadRequest, "reauth_required", "password is required to delete the account", requestID)
		return
	case errors.Is(err, account.ErrReauthFailed):
		api.Fail(w, http.StatusUnauthorized, "reauth_failed", "password incorrect, please re-enter your credentials", requestID)
		return
	case err != nil:
		api.Fail(w, http.StatusServiceUnavailable, "deletion_failed", "deletion did not complete, it is safe to retry", requestID)
		return
	}

	api.Success(w, anonymized, requestID)
}

func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}
	if user.Role != auth.RoleOperator {
		api.Fail(w, http.StatusForbidden, "forbidden", "operator role required", requestID)
		return
	}

	result, err := h.Jobs.RunNow(r.Context(), jobs.JobDeletionSweep, func(ctx context.Context) (any, error) {
		return h.Jobs.Sweep(ctx, time.Now())
	})
	if err != nil {
		api.Fail(w, http.StatusServiceUnavailable, "sweep_failed", "deletion sweep failed, please retry", requestID)
		return
	}
	api.Success(w, result, requestID)
}

func (h *Handler) displayName(ctx context.Context, user auth.UserContext) string {
	principal, err := h.Identity.Principal(ctx, user.UserID)
	if err != nil {
		return ""
	}
	return principal.DisplayName
}
