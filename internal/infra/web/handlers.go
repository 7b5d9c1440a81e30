package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"sproutcv/internal/domain"
	"sproutcv/internal/domain/model"
	"sproutcv/internal/domain/ports/repository"
)

// ===== Response helpers =====

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondDomainError maps domain sentinels to HTTP statuses.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidArgument):
		respondError(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, domain.ErrVerificationFailed):
		respondError(w, http.StatusUnauthorized, "invalid signature")
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrInsufficientCredits):
		respondError(w, http.StatusPaymentRequired, "insufficient credits")
	case errors.Is(err, domain.ErrAmountMismatch), errors.Is(err, domain.ErrStatusMismatch):
		respondError(w, http.StatusBadRequest, "payment verification failed")
	case errors.Is(err, domain.ErrProviderUnavailable):
		respondError(w, http.StatusServiceUnavailable, "payment provider unavailable, try again")
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

type paymentView struct {
	Status    string     `json:"status"`
	PaymentID string     `json:"paymentId"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	Credits   int64      `json:"credits"`
	Message   string     `json:"message,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func toPaymentView(p *model.Payment, message string) paymentView {
	return paymentView{
		Status:    string(p.Status),
		PaymentID: p.ID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Credits:   p.Credits,
		Message:   message,
		ExpiresAt: p.ExpiresAt,
	}
}

// ===== Payments =====

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		PackageID string `json:"packageId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PackageID == "" {
		respondError(w, http.StatusBadRequest, "packageId is required")
		return
	}

	if _, err := s.profileUC.EnsureProfile(r.Context(), identity); err != nil {
		respondDomainError(w, err)
		return
	}
	p, err := s.paymentUC.Checkout(r.Context(), identity.UserID, req.PackageID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"paymentId":   p.ID,
		"checkoutUrl": p.CheckoutURL,
	})
}

func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		PaymentID string `json:"paymentId"`
		Status    string `json:"status"` // optional client claim, never trusted
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PaymentID == "" {
		respondError(w, http.StatusBadRequest, "paymentId is required")
		return
	}

	res, err := s.paymentUC.CheckStatus(r.Context(), identity.UserID, req.PaymentID, req.Status)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondJSON(w, http.StatusNotFound, map[string]string{"status": "not_found"})
			return
		}
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toPaymentView(res.Payment, res.Message))
}

func (s *Server) handleListPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := s.paymentUC.ListPackages(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	type pkgView struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Credits  int64  `json:"credits"`
		Price    int64  `json:"price"`
		Currency string `json:"currency"`
	}
	out := make([]pkgView, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, pkgView{ID: p.ID, Name: p.Name, Credits: p.Credits, Price: p.Price, Currency: p.Currency})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"data": out})
}

// ===== Credits =====

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	if _, err := s.profileUC.EnsureProfile(r.Context(), identity); err != nil {
		respondDomainError(w, err)
		return
	}
	balance, err := s.ledgerUC.Balance(r.Context(), identity.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := s.ledgerUC.History(r.Context(), identity.UserID, limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	type entryView struct {
		ID          string    `json:"id"`
		Type        string    `json:"type"`
		Delta       int64     `json:"delta"`
		Balance     int64     `json:"balanceAfter"`
		Description string    `json:"description"`
		ReferenceID *string   `json:"referenceId,omitempty"`
		CreatedAt   time.Time `json:"createdAt"`
	}
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryView{
			ID: e.ID, Type: string(e.Type), Delta: e.Delta, Balance: e.BalanceAfter,
			Description: e.Description, ReferenceID: e.ReferenceID, CreatedAt: e.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"data": out})
}

// ===== Analyses =====

func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req struct {
		Resume         string `json:"resume"`
		JobDescription string `json:"jobDescription"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := s.profileUC.EnsureProfile(r.Context(), identity); err != nil {
		respondDomainError(w, err)
		return
	}
	a, err := s.analysisUC.Analyze(r.Context(), identity.UserID, req.Resume, req.JobDescription)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":         a.ID,
		"score":      a.Score,
		"result":     a.Result,
		"creditCost": a.CreditCost,
		"createdAt":  a.CreatedAt,
	})
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	analyses, err := s.analysisUC.ListByUser(r.Context(), identity.UserID, limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	type analysisView struct {
		ID        string    `json:"id"`
		Score     int       `json:"score"`
		Result    string    `json:"result"`
		Model     string    `json:"model"`
		CreatedAt time.Time `json:"createdAt"`
	}
	out := make([]analysisView, 0, len(analyses))
	for _, a := range analyses {
		out = append(out, analysisView{ID: a.ID, Score: a.Score, Result: a.Result, Model: a.Model, CreatedAt: a.CreatedAt})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"data": out})
}

// ===== Profile =====

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	p, err := s.profileUC.EnsureProfile(r.Context(), identity)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":            p.ID,
		"email":         p.Email,
		"displayName":   p.DisplayName,
		"creditBalance": p.CreditBalance,
		"emailVerified": p.EmailVerified,
		"referralCode":  p.ReferralCode,
		"referredBy":    p.ReferredBy,
	})
}

func (s *Server) handleRedeemReferral(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		respondError(w, http.StatusBadRequest, "code is required")
		return
	}

	if _, err := s.profileUC.EnsureProfile(r.Context(), identity); err != nil {
		respondDomainError(w, err)
		return
	}
	if err := s.profileUC.RedeemReferral(r.Context(), identity.UserID, req.Code); err != nil {
		if errors.Is(err, domain.ErrAlreadyProcessed) {
			respondError(w, http.StatusConflict, "referral already redeemed")
			return
		}
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"redeemed": true})
}

// ===== Admin =====

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.statsUC.Snapshot(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total_profiles": stats.TotalProfiles,
		"revenue": map[string]int64{
			"week":  stats.RevenueWeek,
			"month": stats.RevenueMonth,
			"year":  stats.RevenueYear,
		},
		"security_events_by_type": stats.SecurityByType,
	})
}

func (s *Server) handleAdminSecurityEvents(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sinceDays, _ := strconv.Atoi(r.URL.Query().Get("since_days"))
	if sinceDays <= 0 {
		sinceDays = 30
	}
	since := time.Now().AddDate(0, 0, -sinceDays)

	events, err := s.events.List(r.Context(), repository.NoTX, since, limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"data": events})
}

func (s *Server) handleAdminAdjustCredits(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string `json:"user_id"`
		Type        string `json:"type"` // bonus | refund
		Delta       int64  `json:"delta"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.Delta == 0 {
		respondError(w, http.StatusBadRequest, "user_id and a non-zero delta are required")
		return
	}

	balance, err := s.ledgerUC.AdminAdjust(r.Context(), req.UserID, model.LedgerEntryType(req.Type), req.Delta, req.Description)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

func (s *Server) handleAdminVerifyBalance(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	ok, ledgerSum, profileBalance, err := s.ledgerUC.VerifyBalance(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"consistent":      ok,
		"ledger_sum":      ledgerSum,
		"profile_balance": profileBalance,
	})
}
