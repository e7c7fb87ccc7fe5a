package handler

import (
	"errors"
	"net/http"

	"driftbottle/internal/auth"
	"driftbottle/internal/bottle"
)

type SaveHandler struct {
	Bottles *bottle.Service
}

type createSaveReq struct {
	BottleID   uint64 `json:"bottleId" validate:"required"`
	Annotation string `json:"annotation"`
}

type savedBottleDTO struct {
	ID         uint64 `json:"id"`
	Message    string `json:"message"`
	Author     string `json:"author"`
	Date       string `json:"date"`
	Likes      int64  `json:"likes"`
	Dislikes   int64  `json:"dislikes"`
	Views      uint64 `json:"views"`
	SavedDate  string `json:"savedDate"`
	Annotation string `json:"annotation"`
}

func (h *SaveHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	rows, err := h.Bottles.ListSaved(r.Context(), uid)
	if err != nil {
		respondInternal(w, err)
		return
	}

	out := make([]savedBottleDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, savedBottleDTO{
			ID:         row.ID,
			Message:    row.Message,
			Author:     row.AuthorName,
			Date:       row.CreatedAt.Format("2006-01-02"),
			Likes:      row.Likes,
			Dislikes:   row.Dislikes,
			Views:      row.Views,
			SavedDate:  row.SavedAt.Format("2006-01-02"),
			Annotation: row.Annotation,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *SaveHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createSaveReq
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad json")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "bottleId required")
		return
	}

	err := h.Bottles.Save(r.Context(), uid, req.BottleID, req.Annotation)
	if err != nil {
		switch {
		case errors.Is(err, bottle.ErrNotFound):
			respondError(w, http.StatusNotFound, "bottle not found")
		case errors.Is(err, bottle.ErrAlreadySaved):
			respondError(w, http.StatusConflict, "bottle already saved")
		default:
			respondInternal(w, err)
		}
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"message": "saved"})
}

func (h *SaveHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := parseID(r, "bottleId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.Bottles.Unsave(r.Context(), uid, id); err != nil {
		if errors.Is(err, bottle.ErrSaveNotFound) {
			respondError(w, http.StatusNotFound, "save not found")
			return
		}
		respondInternal(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
