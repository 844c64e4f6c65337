package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/accountantiq-dev/accountantiq/internal/engine"
	"github.com/accountantiq-dev/accountantiq/internal/export"
	"github.com/accountantiq-dev/accountantiq/internal/model"
	"github.com/accountantiq-dev/accountantiq/internal/normalize"
	"github.com/accountantiq-dev/accountantiq/internal/review"
	"github.com/accountantiq-dev/accountantiq/internal/rules"
	"github.com/accountantiq-dev/accountantiq/internal/workspace"
)

type handler struct {
	engine *engine.Engine
}

type importRequest struct {
	BankCSV         string `json:"bank_csv"`
	HistoryCSV      string `json:"history_csv"`
	Reset           bool   `json:"reset"`
	AutoCreateRules bool   `json:"auto_create_rules"`
}

type overrideRequest struct {
	NominalCode string `json:"nominal_code"`
	TaxCode     string `json:"tax_code"`
	Note        string `json:"note"`
}

type approveRequest struct {
	Note string `json:"note"`
}

type ruleRequest struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
	Nominal string `json:"nominal"`
	TaxCode string `json:"tax_code"`
}

type exportRequest struct {
	Profile string `json:"profile"`
}

type suggestionResponse struct {
	Nominal      string   `json:"nominal_suggested,omitempty"`
	TaxCode      string   `json:"tax_code_suggested,omitempty"`
	Confidence   string   `json:"confidence"`
	Explanations []string `json:"explanations"`
}

type noteResponse struct {
	At     time.Time `json:"at"`
	Action string    `json:"action"`
	Text   string    `json:"text,omitempty"`
}

type itemResponse struct {
	TxnID            string             `json:"txn_id"`
	Date             string             `json:"date"`
	Amount           string             `json:"amount"`
	Direction        string             `json:"direction"`
	DescriptionRaw   string             `json:"description_raw"`
	DescriptionClean string             `json:"description_clean"`
	AccountID        string             `json:"account_id"`
	Suggestion       suggestionResponse `json:"suggestion"`
	Status           string             `json:"status"`
	NominalFinal     string             `json:"nominal_final,omitempty"`
	TaxCodeFinal     string             `json:"tax_code_final,omitempty"`
	Notes            []noteResponse     `json:"notes"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

type importResponse struct {
	Items        []itemResponse `json:"items"`
	SkippedRows  []string       `json:"skipped_rows"`
	RulesCreated int            `json:"rules_created"`
}

type exportResponse struct {
	ExportedPath string `json:"exported_path"`
	RowCount     int    `json:"row_count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toItemResponse(item model.ReviewItem) itemResponse {
	notes := make([]noteResponse, len(item.Notes))
	for i, n := range item.Notes {
		notes[i] = noteResponse(n)
	}
	explanations := item.Suggestion.Explanations
	if explanations == nil {
		explanations = []string{}
	}
	return itemResponse{
		TxnID:            item.Txn.ID,
		Date:             item.Txn.Date.Format("2006-01-02"),
		Amount:           item.Txn.Amount.StringFixed(2),
		Direction:        string(item.Txn.Direction),
		DescriptionRaw:   item.Txn.DescriptionRaw,
		DescriptionClean: item.Txn.DescriptionClean,
		AccountID:        item.Txn.AccountID,
		Suggestion: suggestionResponse{
			Nominal:      item.Suggestion.Nominal,
			TaxCode:      item.Suggestion.TaxCode,
			Confidence:   item.Suggestion.Confidence.String(),
			Explanations: explanations,
		},
		Status:       string(item.Status),
		NominalFinal: item.NominalFinal,
		TaxCodeFinal: item.TaxCodeFinal,
		Notes:        notes,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}

func toItemResponses(items []model.ReviewItem) []itemResponse {
	out := make([]itemResponse, len(items))
	for i, item := range items {
		out[i] = toItemResponse(item)
	}
	return out
}

func (h *handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.engine.ImportReview(mux.Vars(r)["slug"], req.BankCSV, req.HistoryCSV, req.Reset, req.AutoCreateRules)
	if err != nil {
		writeError(w, err)
		return
	}

	skipped := make([]string, len(res.Skipped))
	for i, s := range res.Skipped {
		skipped[i] = s.String()
	}
	writeJSON(w, http.StatusOK, importResponse{
		Items:        toItemResponses(res.Items),
		SkippedRows:  skipped,
		RulesCreated: res.RulesCreated,
	})
}

func (h *handler) Queue(w http.ResponseWriter, r *http.Request) {
	items, err := h.engine.GetQueue(mux.Vars(r)["slug"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]itemResponse{"items": toItemResponses(items)})
}

func (h *handler) Approve(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	vars := mux.Vars(r)
	item, err := h.engine.ApproveItem(vars["slug"], vars["txn_id"], req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (h *handler) Override(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if !decodeBody(w, r, &req) {
		return
	}

	vars := mux.Vars(r)
	item, err := h.engine.OverrideItem(vars["slug"], vars["txn_id"], req.NominalCode, req.TaxCode, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (h *handler) AppendRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.engine.AppendRule(mux.Vars(r)["slug"], req.Name, req.Pattern, req.Nominal, req.TaxCode); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"ok": true})
}

func (h *handler) Rules(w http.ResponseWriter, r *http.Request) {
	all, err := h.engine.Rules(mux.Vars(r)["slug"])
	if err != nil {
		writeError(w, err)
		return
	}
	type ruleResponse struct {
		Name      string    `json:"name"`
		Pattern   string    `json:"pattern"`
		Nominal   string    `json:"nominal"`
		TaxCode   string    `json:"tax_code"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := make([]ruleResponse, len(all))
	for i, rule := range all {
		out[i] = ruleResponse(rule)
	}
	writeJSON(w, http.StatusOK, map[string][]ruleResponse{"rules": out})
}

func (h *handler) Backfill(w http.ResponseWriter, r *http.Request) {
	created, err := h.engine.BackfillRules(mux.Vars(r)["slug"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"rules_created": created})
}

func (h *handler) Export(w http.ResponseWriter, r *http.Request) {
	req := exportRequest{Profile: export.DefaultProfileName}
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}
	if req.Profile == "" {
		req.Profile = export.DefaultProfileName
	}

	res, err := h.engine.Export(mux.Vars(r)["slug"], req.Profile)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{ExportedPath: res.Path, RowCount: res.Rows})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the engine's error taxonomy onto HTTP status codes.
// Every rejection carries the reason so the UI can show it to a human.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var (
		slugErr     *workspace.SlugError
		inputErr    *review.InputError
		ruleErr     *rules.ValidationError
		headerErr   *normalize.HeaderError
		clientErr   *engine.UnknownClientError
		notFoundErr *review.NotFoundError
		profileErr  *export.UnknownProfileError
		stateErr    *review.StateError
	)
	switch {
	case errors.As(err, &slugErr), errors.As(err, &inputErr),
		errors.As(err, &ruleErr), errors.As(err, &headerErr):
		status = http.StatusBadRequest
	case errors.As(err, &clientErr), errors.As(err, &notFoundErr), errors.As(err, &profileErr):
		status = http.StatusNotFound
	case errors.As(err, &stateErr):
		status = http.StatusConflict
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}
