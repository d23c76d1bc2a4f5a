package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"tg-trade-suite/internal/domain"
	"tg-trade-suite/internal/domain/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !s.auth.CheckSecret(body.Secret) {
		writeError(w, http.StatusUnauthorized, "bad credentials")
		return
	}
	token, err := s.auth.Mint()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token mint failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.statsUC.Snapshot(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("stats snapshot failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type userView struct {
	ID                int64     `json:"id"`
	TelegramID        int64     `json:"telegram_id"`
	Username          string    `json:"username"`
	FirstName         string    `json:"first_name"`
	DailyAnalysesUsed int       `json:"daily_analyses_used"`
	PurchasedAnalyses int       `json:"purchased_analyses"`
	TotalAnalyses     int       `json:"total_analyses"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
}

func toUserView(u *model.User) userView {
	return userView{
		ID: u.ID, TelegramID: u.TelegramID, Username: u.Username,
		FirstName: u.FirstName, DailyAnalysesUsed: u.DailyAnalysesUsed,
		PurchasedAnalyses: u.PurchasedAnalyses, TotalAnalyses: u.TotalAnalyses,
		IsActive: u.IsActive, CreatedAt: u.CreatedAt,
	}
}

func (s *Server) handleUsersList(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	users, err := s.userUC.List(r.Context(), offset, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("user list failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, toUserView(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": views, "offset": offset, "limit": limit})
}

func (s *Server) handleUserGet(w http.ResponseWriter, r *http.Request) {
	tgID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad user id")
		return
	}
	u, err := s.userUC.GetByTelegramID(r.Context(), tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toUserView(u))
}

func (s *Server) handleUserCredit(w http.ResponseWriter, r *http.Request) {
	tgID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad user id")
		return
	}
	var body struct {
		Analyses int `json:"analyses"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad body")
		return
	}

	u, err := s.userUC.GetByTelegramID(r.Context(), tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := s.userUC.GrantCredits(r.Context(), u.ID, body.Analyses); err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, "analyses must be positive")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"granted": body.Analyses})
}

func (s *Server) handlePaymentsList(w http.ResponseWriter, r *http.Request) {
	status := model.PaymentStatus(r.URL.Query().Get("status"))
	switch status {
	case "":
		status = model.PaymentStatusConfirmed
	case model.PaymentStatusPending, model.PaymentStatusConfirmed,
		model.PaymentStatusFailed, model.PaymentStatusExpired:
	default:
		writeError(w, http.StatusBadRequest, "bad status")
		return
	}
	payments, err := s.paymentUC.ListByStatus(r.Context(), status, 100)
	if err != nil {
		s.log.Error().Err(err).Msg("payment list failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
}
