package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/chorebridge/internal/auth"
	"github.com/dukerupert/chorebridge/internal/model"
	"github.com/dukerupert/chorebridge/internal/recurrence"
	"github.com/dukerupert/chorebridge/internal/store"
)

type ChoreHandler struct {
	choreStore  *store.ChoreStore
	circleStore *store.CircleStore
	now         func() time.Time
	logger      *slog.Logger
}

func NewChoreHandler(cs *store.ChoreStore, circles *store.CircleStore, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{choreStore: cs, circleStore: circles, now: time.Now, logger: logger}
}

// load fetches the chore named by the {id} path value, writing the error
// response itself when it returns nil.
func (h *ChoreHandler) load(w http.ResponseWriter, r *http.Request) *model.Chore {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil
	}
	chore, err := h.choreStore.Get(auth.CircleID(r.Context()), id)
	if err != nil {
		h.logger.Error("get chore", "chore_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get chore")
		return nil
	}
	if chore == nil {
		writeError(w, http.StatusNotFound, "chore not found")
		return nil
	}
	return chore
}

func (h *ChoreHandler) save(w http.ResponseWriter, r *http.Request, chore *model.Chore) bool {
	if err := h.choreStore.Save(auth.CircleID(r.Context()), chore); err != nil {
		h.logger.Error("save chore", "chore_id", chore.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update chore")
		return false
	}
	return true
}

func (h *ChoreHandler) checkMember(w http.ResponseWriter, r *http.Request, userID int) bool {
	ok, err := h.circleStore.IsMember(auth.CircleID(r.Context()), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check circle member")
		return false
	}
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("user %d is not a circle member", userID))
		return false
	}
	return true
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	chores, err := h.choreStore.List(auth.CircleID(r.Context()))
	if err != nil {
		h.logger.Error("list chores", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list chores")
		return
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	writeRes(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	if chore := h.load(w, r); chore != nil {
		writeRes(w, http.StatusOK, chore)
	}
}

// Create stores a new chore and answers with its ID only, the way the
// hosted service does.
func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.ChoreCreate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := req.Normalize(); err != nil {
		writeValidation(w, err)
		return
	}

	ac, _ := auth.FromContext(r.Context())
	chore := model.Chore{
		Name:                 req.Name,
		Description:          req.Description,
		FrequencyType:        req.FrequencyType,
		Frequency:            req.Frequency,
		FrequencyMetadata:    req.FrequencyMetadata,
		IsRolling:            req.IsRolling,
		Assignees:            req.Assignees,
		AssignStrategy:       req.AssignStrategy,
		IsActive:             req.IsActive,
		Notification:         req.Notification,
		NotificationMetadata: req.NotificationMetadata,
		Labels:               req.Labels,
		LabelsV2:             req.LabelsV2,
		Priority:             req.Priority,
		IsPrivate:            req.IsPrivate,
		Points:               req.Points,
		SubTasks:             req.SubTasks,
		ThingChore:           req.ThingChore,
		CreatedBy:            ac.UserID,
	}

	switch {
	case req.AssignedTo != nil:
		chore.AssignedTo = *req.AssignedTo
	case len(req.Assignees) > 0:
		chore.AssignedTo = req.Assignees[0].UserID
	default:
		chore.AssignedTo = ac.UserID
	}
	if !hasAssignee(chore.Assignees, chore.AssignedTo) {
		chore.Assignees = append(chore.Assignees, model.Assignee{UserID: chore.AssignedTo})
	}
	for _, a := range chore.Assignees {
		if !h.checkMember(w, r, a.UserID) {
			return
		}
	}

	if req.DueDate != "" {
		due, err := model.ParseDueDate(req.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		due = due.UTC()
		chore.NextDueDate = &due
	}
	if chore.LabelsV2 == nil {
		chore.LabelsV2 = []model.LabelRef{}
	}

	created, err := h.choreStore.Create(ac.CircleID, chore)
	if err != nil {
		h.logger.Error("create chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create chore")
		return
	}
	h.logger.Info("chore created", "chore_id", created.ID, "name", created.Name)
	writeRes(w, http.StatusCreated, created.ID)
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	chore := h.load(w, r)
	if chore == nil {
		return
	}
	var req model.ChoreUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := req.Normalize(); err != nil {
		writeValidation(w, err)
		return
	}

	if req.Name != nil {
		chore.Name = *req.Name
	}
	if req.Description != nil {
		chore.Description = *req.Description
	}
	if req.NextDueDate != nil {
		due, err := time.Parse(time.RFC3339, *req.NextDueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid nextDueDate")
			return
		}
		chore.NextDueDate = &due
	}
	chore.UpdatedBy = auth.UserID(r.Context())
	if h.save(w, r, chore) {
		writeRes(w, http.StatusOK, chore)
	}
}

func (h *ChoreHandler) UpdatePriority(w http.ResponseWriter, r *http.Request) {
	chore := h.load(w, r)
	if chore == nil {
		return
	}
	var req struct {
		Priority int `json:"priority"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := model.ValidatePriority(req.Priority); err != nil {
		writeValidation(w, err)
		return
	}

	chore.Priority = req.Priority
	chore.UpdatedBy = auth.UserID(r.Context())
	if h.save(w, r, chore) {
		writeRes(w, http.StatusOK, chore)
	}
}

func (h *ChoreHandler) UpdateAssignee(w http.ResponseWriter, r *http.Request) {
	chore := h.load(w, r)
	if chore == nil {
		return
	}
	var req struct {
		Assignee int `json:"assignee"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !h.checkMember(w, r, req.Assignee) {
		return
	}

	chore.AssignedTo = req.Assignee
	if !hasAssignee(chore.Assignees, req.Assignee) {
		chore.Assignees = append(chore.Assignees, model.Assignee{UserID: req.Assignee})
	}
	chore.UpdatedBy = auth.UserID(r.Context())
	if h.save(w, r, chore) {
		writeRes(w, http.StatusOK, chore)
	}
}

func hasAssignee(list []model.Assignee, userID int) bool {
	for _, a := range list {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// advance records a completion or skip and moves the chore to its next
// occurrence. A chore with no next occurrence becomes inactive.
func (h *ChoreHandler) advance(w http.ResponseWriter, r *http.Request, chore *model.Chore, by int, skipped bool) bool {
	now := h.now().UTC()
	_, err := h.choreStore.AddHistory(model.CompletionRecord{
		ChoreID:     chore.ID,
		CompletedBy: by,
		CompletedAt: now,
		DueDate:     chore.NextDueDate,
		Skipped:     skipped,
	})
	if err != nil {
		h.logger.Error("record history", "chore_id", chore.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record completion")
		return false
	}

	next, ok := recurrence.Advance(recurrence.ScheduleOf(*chore), chore.NextDueDate, now)
	if ok {
		chore.NextDueDate = &next
	} else {
		chore.NextDueDate = nil
		chore.IsActive = false
	}
	for i := range chore.SubTasks {
		chore.SubTasks[i].CompletedAt = nil
		chore.SubTasks[i].CompletedBy = nil
	}
	chore.UpdatedBy = by
	return h.save(w, r, chore)
}

func (h *ChoreHandler) Complete(w http.ResponseWriter, r *http.Request) {
	chore := h.load(w, r)
	if chore == nil {
		return
	}
	by := auth.UserID(r.Context())
	if v := r.URL.Query().Get("completedBy"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid completedBy")
			return
		}
		if !h.checkMember(w, r, n) {
			return
		}
		by = n
	}
	if h.advance(w, r, chore, by, false) {
		h.logger.Info("chore completed", "chore_id", chore.ID, "completed_by", by)
		writeRes(w, http.StatusOK, chore)
	}
}

func (h *ChoreHandler) Skip(w http.ResponseWriter, r *http.Request) {
	chore := h.load(w, r)
	if chore == nil {
		return
	}
	if h.advance(w, r, chore, auth.UserID(r.Context()), true) {
		h.logger.Info("chore skipped", "chore_id", chore.ID)
		writeRes(w, http.StatusOK, chore)
	}
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	deleted, err := h.choreStore.Delete(auth.CircleID(r.Context()), id)
	if err != nil {
		h.logger.Error("delete chore", "chore_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete chore")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}
	h.logger.Info("chore deleted", "chore_id", id)
	writeRes(w, http.StatusOK, "chore deleted")
}
