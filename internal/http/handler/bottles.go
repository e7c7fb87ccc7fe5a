package handler

import (
	"errors"
	"net/http"
	"strconv"

	"driftbottle/internal/auth"
	"driftbottle/internal/bottle"
	"driftbottle/internal/userstate"

	"github.com/go-chi/chi/v5"
)

type BottleHandler struct {
	Bottles *bottle.Service
	States  *userstate.Service
}

type createBottleReq struct {
	Message    string `json:"message" validate:"required,max=500"`
	AuthorName string `json:"authorName" validate:"omitempty,max=100"`
}

type reactReq struct {
	ReactionType string `json:"reactionType" validate:"required,oneof=like dislike"`
}

type bottleDTO struct {
	ID           uint64  `json:"id"`
	Message      string  `json:"message"`
	Author       string  `json:"author"`
	Date         string  `json:"date"`
	Likes        int64   `json:"likes"`
	Dislikes     int64   `json:"dislikes"`
	Views        uint64  `json:"views"`
	UserReaction *string `json:"userReaction"`
}

func bottleToDTO(b *bottle.Bottle, st bottle.Stats) bottleDTO {
	return bottleDTO{
		ID:           b.ID,
		Message:      b.Message,
		Author:       b.AuthorName,
		Date:         b.CreatedAt.Format("2006-01-02"),
		Likes:        st.Likes,
		Dislikes:     st.Dislikes,
		Views:        b.Views,
		UserReaction: st.UserReaction,
	}
}

// Random serves today's pick. Authenticated callers consume the daily pick
// gate; anonymous callers are ungated and leave no view history.
func (h *BottleHandler) Random(w http.ResponseWriter, r *http.Request) {
	uid, authed := auth.UserIDFromContext(r.Context())

	var userID *uint64
	if authed {
		st, err := h.States.Get(r.Context(), uid)
		if err != nil {
			respondInternal(w, err)
			return
		}
		if !st.DevMode && st.HasPickedToday {
			respondError(w, http.StatusConflict, "already picked today")
			return
		}
		userID = &uid
	}

	b, stats, err := h.Bottles.Random(r.Context(), userID)
	if err != nil {
		if errors.Is(err, bottle.ErrNoBottles) {
			respondError(w, http.StatusNotFound, "no bottles available")
			return
		}
		respondInternal(w, err)
		return
	}

	if authed {
		if _, err := h.States.RecordPick(r.Context(), uid); err != nil &&
			!errors.Is(err, userstate.ErrAlreadyPicked) {
			respondInternal(w, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, bottleToDTO(b, stats))
}

// Create throws a new bottle. Authenticated callers consume the daily throw
// gate; anonymous bottles attach to the placeholder account.
func (h *BottleHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, authed := auth.UserIDFromContext(r.Context())

	var req createBottleReq
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad json")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid input")
		return
	}

	var userID *uint64
	if authed {
		st, err := h.States.Get(r.Context(), uid)
		if err != nil {
			respondInternal(w, err)
			return
		}
		if !st.DevMode && st.HasThrownToday {
			respondError(w, http.StatusConflict, "already thrown today")
			return
		}
		userID = &uid
	}

	b, err := h.Bottles.Create(r.Context(), userID, req.Message, req.AuthorName)
	if err != nil {
		switch {
		case errors.Is(err, bottle.ErrEmptyMessage):
			respondError(w, http.StatusBadRequest, "message must not be empty")
		case errors.Is(err, bottle.ErrMessageTooLong):
			respondError(w, http.StatusBadRequest, "message exceeds 500 characters")
		default:
			respondInternal(w, err)
		}
		return
	}

	if authed {
		if _, err := h.States.RecordThrow(r.Context(), uid); err != nil &&
			!errors.Is(err, userstate.ErrAlreadyThrown) {
			respondInternal(w, err)
			return
		}
	}

	respondJSON(w, http.StatusCreated, bottleToDTO(b, bottle.Stats{}))
}

func (h *BottleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var userID *uint64
	if uid, ok := auth.UserIDFromContext(r.Context()); ok {
		userID = &uid
	}

	b, stats, err := h.Bottles.Get(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, bottle.ErrNotFound) {
			respondError(w, http.StatusNotFound, "bottle not found")
			return
		}
		respondInternal(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bottleToDTO(b, stats))
}

func (h *BottleHandler) React(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req reactReq
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad json")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid reaction type")
		return
	}

	stats, err := h.Bottles.React(r.Context(), uid, id, req.ReactionType)
	if err != nil {
		switch {
		case errors.Is(err, bottle.ErrNotFound):
			respondError(w, http.StatusNotFound, "bottle not found")
		case errors.Is(err, bottle.ErrInvalidReaction):
			respondError(w, http.StatusBadRequest, "invalid reaction type")
		default:
			respondInternal(w, err)
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"likes":        stats.Likes,
		"dislikes":     stats.Dislikes,
		"userReaction": stats.UserReaction,
	})
}

func parseID(r *http.Request, name string) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, name), 10, 64)
}
