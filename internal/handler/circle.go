package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorebridge/internal/auth"
	"github.com/dukerupert/chorebridge/internal/model"
	"github.com/dukerupert/chorebridge/internal/store"
)

type CircleHandler struct {
	circleStore *store.CircleStore
	labelStore  *store.LabelStore
	logger      *slog.Logger
}

func NewCircleHandler(cs *store.CircleStore, ls *store.LabelStore, logger *slog.Logger) *CircleHandler {
	return &CircleHandler{circleStore: cs, labelStore: ls, logger: logger}
}

func (h *CircleHandler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.circleStore.Members(auth.CircleID(r.Context()))
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []model.CircleMember{}
	}
	writeRes(w, http.StatusOK, members)
}

func (h *CircleHandler) Labels(w http.ResponseWriter, r *http.Request) {
	labels, err := h.labelStore.List(auth.CircleID(r.Context()))
	if err != nil {
		h.logger.Error("list labels", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list labels")
		return
	}
	if labels == nil {
		labels = []model.Label{}
	}
	writeRes(w, http.StatusOK, labels)
}
