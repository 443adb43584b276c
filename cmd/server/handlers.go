package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/campbill/internal/billing"
	"github.com/Simplici0/campbill/internal/campdata"
	"github.com/Simplici0/campbill/internal/pricing"
	"github.com/Simplici0/campbill/internal/store"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type rateView struct {
	store.RateRow
	Mode           pricing.PricingMode `json:"mode"`
	DailyCaseLimit int                 `json:"daily_case_limit,omitempty"`
}

type costsRequest struct {
	Inputs map[string]pricing.CaseInput `json:"inputs"`
	// Rates replaces the stored catalog rates when present.
	Rates map[string]pricing.BaseRate `json:"rates,omitempty"`
}

type costsResponse struct {
	pricing.CampCosts
	Failed []string `json:"failed"`
}

type summaryResponse struct {
	Costs   costsResponse   `json:"costs"`
	Summary billing.Summary `json:"summary"`
	// GrandTotalDisplay is the grand total in rupee notation.
	GrandTotalDisplay string `json:"grand_total_display"`
}

type recordResponse struct {
	billing.Record
	GrandTotalDisplay string `json:"grand_total_display"`
}

type submitResponse struct {
	Record            billing.Record    `json:"record"`
	GrandTotalDisplay string            `json:"grand_total_display"`
	Warnings          []pricing.Warning `json:"warnings"`
	Failed            []string          `json:"failed"`
}

type healthResponse struct {
	Status string `json:"status"`
	// BillingCounter is the counter value the next billing number will use,
	// reported by backends that can read it without consuming it.
	BillingCounter *int64 `json:"billing_counter,omitempty"`
}

// sequenceReader is implemented by billing counters that can be inspected.
type sequenceReader interface {
	Current(ctx context.Context) (int64, error)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	resp := healthResponse{Status: "ok"}
	if seq, ok := s.numbers.Store.(sequenceReader); ok {
		n, err := seq.Current(r.Context())
		if err != nil {
			log.Printf("read billing counter: %v", err)
			writeError(w, http.StatusServiceUnavailable, "billing counter unavailable")
			return
		}
		resp.BillingCounter = &n
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	email := strings.TrimSpace(req.Email)
	valid, err := s.auth.validateCredentials(r.Context(), email, req.Password)
	if err != nil {
		log.Printf("login: %v", err)
		writeError(w, http.StatusInternalServerError, "authentication error")
		return
	}
	if !valid {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.auth.setSessionCookie(w, email)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleListRates(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListRates(r.Context())
	if err != nil {
		log.Printf("list rates: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load rates")
		return
	}

	views := make([]rateView, 0, len(rows))
	for _, row := range rows {
		v := rateView{RateRow: row}
		if svc, err := s.catalog.Lookup(row.Service); err == nil {
			v.Mode = svc.Mode
			v.DailyCaseLimit = svc.DailyCaseLimit
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *server) handleUpsertRate(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")
	if _, err := s.catalog.Lookup(service); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var rate pricing.BaseRate
	if err := decodeJSON(r, &rate); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateRate(rate); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpsertRate(r.Context(), service, rate); err != nil {
		log.Printf("upsert rate: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save rate")
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

func (s *server) handleCosts(w http.ResponseWriter, r *http.Request) {
	var req costsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rates := req.Rates
	if rates == nil {
		var err error
		if rates, err = s.store.Rates(r.Context()); err != nil {
			log.Printf("load rates: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to load rates")
			return
		}
	}

	writeJSON(w, http.StatusOK, newCostsResponse(pricing.Aggregate(s.catalog, req.Inputs, rates)))
}

func (s *server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var req billing.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	preview, err := s.billing.Preview(r.Context(), req)
	if isRequestError(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		log.Printf("preview billing: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to price camp")
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Costs:             newCostsResponse(preview.Costs),
		Summary:           preview.Summary,
		GrandTotalDisplay: billing.FormatINR(preview.Summary.GrandTotal),
	})
}

func (s *server) handleSubmitBilling(w http.ResponseWriter, r *http.Request) {
	var req billing.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := s.billing.Submit(r.Context(), req)
	switch {
	case isRequestError(err):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, billing.ErrSequenceUnavailable):
		log.Printf("submit billing: %v", err)
		writeError(w, http.StatusServiceUnavailable, "billing number unavailable, nothing was saved")
		return
	case err != nil && sub.Record.BillingNumber != "":
		log.Printf("submit billing: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":          "failed to save billing record",
			"billing_number": sub.Record.BillingNumber,
		})
		return
	case err != nil:
		log.Printf("submit billing: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to submit billing")
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{
		Record:            sub.Record,
		GrandTotalDisplay: billing.FormatINR(sub.Record.GrandTotal),
		Warnings:          sub.Warnings,
		Failed:            sub.Failed,
	})
}

func (s *server) handleListBilling(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	items, err := s.store.ListRecords(r.Context(), query)
	if err != nil {
		log.Printf("list billing records: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load billing records")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *server) handleGetBilling(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetRecord(r.Context(), chi.URLParam(r, "number"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "billing record not found")
		return
	}
	if err != nil {
		log.Printf("get billing record: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load billing record")
		return
	}
	writeJSON(w, http.StatusOK, recordResponse{Record: rec, GrandTotalDisplay: billing.FormatINR(rec.GrandTotal)})
}

func (s *server) handleImportCases(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	rates, err := s.store.Rates(r.Context())
	if err != nil {
		log.Printf("load rates: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load rates")
		return
	}

	imported, err := campdata.ReadFile(header.Filename, file, s.catalog, rates)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, imported)
}

func (s *server) handleListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := s.store.ListCoupons(r.Context())
	if err != nil {
		log.Printf("list coupons: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load coupons")
		return
	}
	writeJSON(w, http.StatusOK, coupons)
}

func (s *server) handleValidateCoupon(w http.ResponseWriter, r *http.Request) {
	coupon, err := s.store.GetCoupon(r.Context(), chi.URLParam(r, "code"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "invalid coupon code")
		return
	}
	if err != nil {
		log.Printf("get coupon: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load coupon")
		return
	}
	writeJSON(w, http.StatusOK, coupon)
}

func (s *server) handleUpsertCoupon(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DiscountPercentage float64 `json:"discount_percentage"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	coupon := billing.Coupon{
		Code:               billing.NormalizeCouponCode(chi.URLParam(r, "code")),
		DiscountPercentage: req.DiscountPercentage,
	}
	if err := billing.ValidateCoupon(coupon); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.UpsertCoupon(r.Context(), coupon); err != nil {
		log.Printf("upsert coupon: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save coupon")
		return
	}
	writeJSON(w, http.StatusOK, coupon)
}

// isRequestError reports billing errors caused by the request content.
func isRequestError(err error) bool {
	return errors.Is(err, billing.ErrNoServices) ||
		errors.Is(err, billing.ErrInvalidAdjustment) ||
		errors.Is(err, billing.ErrUnknownCoupon)
}

func newCostsResponse(costs pricing.CampCosts) costsResponse {
	return costsResponse{CampCosts: costs, Failed: costs.FailedNames()}
}

func validateRate(rate pricing.BaseRate) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"salary", rate.Salary},
		{"incentive", rate.Incentive},
		{"misc", rate.Misc},
		{"equipment", rate.Equipment},
		{"consumables", rate.Consumables},
		{"reporting", rate.Reporting},
		{"flat_price", rate.FlatPrice},
		{"hard_copy_price", rate.HardCopyPrice},
	}
	for _, f := range fields {
		if f.value < 0 {
			return fmt.Errorf("%s must be greater than or equal to 0", f.name)
		}
	}
	seen := make(map[int]bool, len(rate.Tiers))
	for _, t := range rate.Tiers {
		if t.MaxCases <= 0 || t.Price < 0 {
			return errors.New("tiers need max_cases above 0 and a price of at least 0")
		}
		if seen[t.MaxCases] {
			return fmt.Errorf("tiers repeat max_cases %d", t.MaxCases)
		}
		seen[t.MaxCases] = true
	}
	return nil
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
