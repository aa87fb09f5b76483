package coa

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atlas-retail/atlas-ledger/internal/platform/httpx"
	"github.com/atlas-retail/atlas-ledger/internal/shared"
)

// Handler exposes chart-of-accounts administration over HTTP.
type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler constructs Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, validate: validator.New(), logger: logger}
}

// MountRoutes attaches chart-of-accounts routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/headers", h.createHeader)
	r.Post("/accounts", h.createAccount)
	r.Put("/accounts/{id}", h.edit)
	r.Delete("/accounts/{id}", h.remove)
	r.Post("/openings", h.saveOpenings)
	r.Post("/openings/lock", h.lockOpenings)
}

type createAccountRequest struct {
	ParentID int64  `json:"parentId" validate:"required,gt=0"`
	Name     string `json:"name" validate:"required"`
}

type accountResponse struct {
	ID           int64  `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	NormalSide   string `json:"normalSide"`
	IsHeader     bool   `json:"isHeader"`
	AllowPosting bool   `json:"allowPosting"`
}

func toAccountResponse(a Account) accountResponse {
	return accountResponse{
		ID:           a.ID,
		Code:         a.Code,
		Name:         a.Name,
		Type:         string(a.Type),
		NormalSide:   string(a.NormalSide),
		IsHeader:     a.IsHeader,
		AllowPosting: a.AllowPosting,
	}
}

func (h *Handler) createHeader(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.CreateHeader(r.Context(), req.ParentID, req.Name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.CreateAccount(r.Context(), req.ParentID, req.Name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountResponse(account))
}

type editAccountRequest struct {
	Code         string `json:"code"`
	Name         string `json:"name" validate:"required"`
	IsHeader     bool   `json:"isHeader"`
	AllowPosting bool   `json:"allowPosting"`
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "account id must be numeric")
		return
	}
	var req editAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	edit := AccountEdit{ID: id, Code: req.Code, Name: req.Name, IsHeader: req.IsHeader, AllowPosting: req.AllowPosting}
	if err := h.service.Edit(r.Context(), edit); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "account id must be numeric")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type openingLine struct {
	AccountID int64   `json:"accountId" validate:"required,gt=0"`
	Debit     float64 `json:"debit" validate:"gte=0"`
	Credit    float64 `json:"credit" validate:"gte=0"`
}

type saveOpeningsRequest struct {
	Lines []openingLine `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) saveOpenings(w http.ResponseWriter, r *http.Request) {
	var req saveOpeningsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	changes := make([]OpeningChange, 0, len(req.Lines))
	for _, l := range req.Lines {
		changes = append(changes, OpeningChange{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit})
	}
	if err := h.service.SaveOpenings(r.Context(), changes); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"saved": len(changes)})
}

func (h *Handler) lockOpenings(w http.ResponseWriter, r *http.Request) {
	locked, err := h.service.LockAllOpenings(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("opening balances locked", "accounts", locked)
	httpx.JSON(w, http.StatusOK, map[string]any{"locked": locked})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validationf("invalid id")
	}
	return id, nil
}
