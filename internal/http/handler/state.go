package handler

import (
	"errors"
	"net/http"
	"time"

	"driftbottle/internal/auth"
	"driftbottle/internal/userstate"
)

type StateHandler struct {
	States *userstate.Service
}

type updateStateReq struct {
	HasPickedToday  *bool   `json:"hasPickedToday"`
	HasThrownToday  *bool   `json:"hasThrownToday"`
	CurrentView     *string `json:"currentView" validate:"omitempty,oneof=pick write"`
	DevMode         *bool   `json:"devMode"`
	HasSeenTutorial *bool   `json:"hasSeenTutorial"`
}

type stateDTO struct {
	HasPickedToday  bool    `json:"hasPickedToday"`
	HasThrownToday  bool    `json:"hasThrownToday"`
	LastPickDate    *string `json:"lastPickDate"`
	LastThrowDate   *string `json:"lastThrowDate"`
	CurrentView     string  `json:"currentView"`
	DevMode         bool    `json:"devMode"`
	HasSeenTutorial bool    `json:"hasSeenTutorial"`
}

func stateToDTO(st *userstate.UserState) stateDTO {
	return stateDTO{
		HasPickedToday:  st.HasPickedToday,
		HasThrownToday:  st.HasThrownToday,
		LastPickDate:    dateString(st.LastPickDate),
		LastThrowDate:   dateString(st.LastThrowDate),
		CurrentView:     st.CurrentView,
		DevMode:         st.DevMode,
		HasSeenTutorial: st.HasSeenTutorial,
	}
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

func (h *StateHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		// anonymous callers get the defaults
		respondJSON(w, http.StatusOK, stateDTO{CurrentView: userstate.ViewPick})
		return
	}

	st, err := h.States.Get(r.Context(), uid)
	if err != nil {
		respondInternal(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stateToDTO(st))
}

func (h *StateHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req updateStateReq
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "bad json")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid input")
		return
	}

	st, err := h.States.Update(r.Context(), uid, userstate.UpdateInput{
		HasPickedToday:  req.HasPickedToday,
		HasThrownToday:  req.HasThrownToday,
		CurrentView:     req.CurrentView,
		DevMode:         req.DevMode,
		HasSeenTutorial: req.HasSeenTutorial,
	})
	if err != nil {
		if errors.Is(err, userstate.ErrInvalidView) {
			respondError(w, http.StatusBadRequest, "invalid view")
			return
		}
		respondInternal(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stateToDTO(st))
}
