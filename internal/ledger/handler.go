package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/atlas-retail/atlas-ledger/internal/platform/httpx"
)

// Handler exposes voucher entry and the revision/void protocol over
// HTTP. Trade documents post through their own document services, not
// here.
type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler constructs Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, validate: validator.New(), logger: logger}
}

// MountRoutes attaches voucher routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/vouchers", h.postVoucher)
	r.Post("/vouchers/{chainID}/void", h.voidVoucher)
	r.Post("/vouchers/{chainID}/revise", h.reviseVoucher)
	r.Post("/till-close", h.tillClose)
}

type voucherLineRequest struct {
	AccountID int64   `json:"accountId" validate:"required,gt=0"`
	Debit     float64 `json:"debit" validate:"gte=0"`
	Credit    float64 `json:"credit" validate:"gte=0"`
	Memo      string  `json:"memo"`
}

type voucherRequest struct {
	DocNo         string               `json:"docNo" validate:"required"`
	Type          string               `json:"type" validate:"required,oneof=JOURNAL DEBIT CREDIT"`
	OutletID      *int64               `json:"outletId"`
	EffectiveDate time.Time            `json:"effectiveDate"`
	Lines         []voucherLineRequest `json:"lines" validate:"required,min=1,dive"`
	Memo          string               `json:"memo"`
}

type postingResponse struct {
	DocID   uuid.UUID `json:"docId"`
	ChainID uuid.UUID `json:"chainId"`
	Legs    int       `json:"legs"`
}

func (h *Handler) postVoucher(w http.ResponseWriter, r *http.Request) {
	var req voucherRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	docID := uuid.New()
	v := Voucher{
		DocID:         docID,
		ChainID:       docID,
		DocNo:         req.DocNo,
		OutletID:      req.OutletID,
		Type:          VoucherType(req.Type),
		EffectiveDate: req.EffectiveDate,
		Memo:          req.Memo,
	}
	for _, l := range req.Lines {
		v.Lines = append(v.Lines, VoucherLine{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit, Memo: l.Memo})
	}
	entries, err := h.service.PostVoucher(r.Context(), v)
	if err != nil {
		h.respondPostingError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, postingResponse{DocID: docID, ChainID: docID, Legs: len(entries)})
}

type voidRequest struct {
	DocNo  string `json:"docNo" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) voidVoucher(w http.ResponseWriter, r *http.Request) {
	chainID, err := uuid.Parse(chi.URLParam(r, "chainID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "chain id must be a UUID")
		return
	}
	var req voidRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	docID := uuid.New()
	entries, err := h.service.VoidVoucher(r.Context(), VoidVoucherInput{
		ChainID: chainID,
		DocID:   docID,
		DocNo:   req.DocNo,
		Reason:  req.Reason,
	})
	if err != nil {
		h.respondPostingError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, postingResponse{DocID: docID, ChainID: chainID, Legs: len(entries)})
}

func (h *Handler) reviseVoucher(w http.ResponseWriter, r *http.Request) {
	chainID, err := uuid.Parse(chi.URLParam(r, "chainID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "chain id must be a UUID")
		return
	}
	var req voucherRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	v := Voucher{
		DocID:         uuid.New(),
		ChainID:       chainID,
		DocNo:         req.DocNo,
		OutletID:      req.OutletID,
		Type:          VoucherType(req.Type),
		EffectiveDate: req.EffectiveDate,
		Memo:          req.Memo,
	}
	for _, l := range req.Lines {
		v.Lines = append(v.Lines, VoucherLine{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit, Memo: l.Memo})
	}
	entries, err := h.service.ReviseVoucher(r.Context(), v)
	if err != nil {
		h.respondPostingError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, postingResponse{DocID: v.DocID, ChainID: chainID, Legs: len(entries)})
}

type tillCloseRequest struct {
	DocNo         string    `json:"docNo" validate:"required"`
	OutletID      int64     `json:"outletId" validate:"required,gt=0"`
	DeclaredCash  float64   `json:"declaredCash" validate:"gte=0"`
	SystemCash    float64   `json:"systemCash" validate:"gte=0"`
	EffectiveDate time.Time `json:"effectiveDate"`
	Memo          string    `json:"memo"`
}

func (h *Handler) tillClose(w http.ResponseWriter, r *http.Request) {
	var req tillCloseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	docID := uuid.New()
	entries, err := h.service.PostTillClose(r.Context(), TillCloseDocument{
		DocID:         docID,
		ChainID:       docID,
		DocNo:         req.DocNo,
		OutletID:      req.OutletID,
		DeclaredCash:  req.DeclaredCash,
		SystemCash:    req.SystemCash,
		EffectiveDate: req.EffectiveDate,
		Memo:          req.Memo,
	})
	if err != nil {
		h.respondPostingError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, postingResponse{DocID: docID, ChainID: docID, Legs: len(entries)})
}

func (h *Handler) respondPostingError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrDocumentAlreadyPosted) {
		httpx.Problem(w, http.StatusConflict, "Conflict", "document already posted")
		return
	}
	httpx.RespondError(w, err)
}
