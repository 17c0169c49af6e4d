package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/itamhq/inventory/internal/core/domain"
	"github.com/itamhq/inventory/internal/core/service"
)

type HTTPHandler struct {
	svc      *service.InventoryService
	validate *validator.Validate
}

func NewHTTPHandler(svc *service.InventoryService) *HTTPHandler {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report validation failures under the JSON field names the caller sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &HTTPHandler{svc: svc, validate: v}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)

	mux.HandleFunc("GET /api/inventory", h.ListItems)
	mux.HandleFunc("POST /api/inventory", h.Receive)
	mux.HandleFunc("GET /api/inventory/{id}", h.GetItem)
	mux.HandleFunc("PUT /api/inventory/{id}", h.UpdateItem)
	mux.HandleFunc("DELETE /api/inventory/{id}", h.DeleteItem)

	mux.HandleFunc("POST /api/inventory/adjust", h.Adjust)
	mux.HandleFunc("POST /api/inventory/dispense", h.Dispense)
	mux.HandleFunc("POST /api/inventory/return", h.Return)

	mux.HandleFunc("GET /api/inventory/history/{id}", h.History)
	mux.HandleFunc("GET /api/inventory/dashboard", h.Dashboard)
	mux.HandleFunc("GET /api/inventory/reports", h.Reports)
}

type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Total   *int   `json:"total,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

type adjustRequest struct {
	ItemID      int64   `json:"itemId" validate:"required,gt=0"`
	NewQuantity *int    `json:"newQuantity" validate:"required,gte=0"`
	UserID      *string `json:"userId"`
	Notes       string  `json:"notes" validate:"required"`
}

type dispenseRequest struct {
	ItemID             int64   `json:"itemId" validate:"required,gt=0"`
	QuantityToDispense int     `json:"quantityToDispense" validate:"required,gt=0"`
	UserID             *string `json:"userId"`
	Notes              *string `json:"notes"`
}

type returnRequest struct {
	ItemID           int64   `json:"itemId" validate:"required,gt=0"`
	QuantityToReturn int     `json:"quantityToReturn" validate:"required,gt=0"`
	UserID           *string `json:"userId"`
	Notes            *string `json:"notes"`
}

type receiveRequest struct {
	Barcode       *string         `json:"barcode"`
	Name          string          `json:"name" validate:"required"`
	Quantity      *int            `json:"quantity" validate:"required,gte=0"`
	Location      *string         `json:"location"`
	Category      *string         `json:"category"`
	Description   *string         `json:"description"`
	ImageURL      *string         `json:"image_url"`
	MinStockLevel *int            `json:"min_stock_level" validate:"omitempty,gte=0"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit"`
}

type updateItemRequest struct {
	Barcode       *string         `json:"barcode"`
	Name          string          `json:"name" validate:"required"`
	Location      *string         `json:"location"`
	Category      *string         `json:"category"`
	Description   *string         `json:"description"`
	ImageURL      *string         `json:"image_url"`
	MinStockLevel *int            `json:"min_stock_level" validate:"omitempty,gte=0"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit"`
}

func (h *HTTPHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.svc.Adjust(r.Context(), req.ItemID, *req.NewQuantity, req.UserID, req.Notes)
	if err != nil {
		h.writeError(w, r, err, "Failed to adjust stock")
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Stock adjusted successfully"})
}

func (h *HTTPHandler) Dispense(w http.ResponseWriter, r *http.Request) {
	var req dispenseRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.svc.Dispense(r.Context(), req.ItemID, req.QuantityToDispense, req.UserID, req.Notes)
	if err != nil {
		h.writeError(w, r, err, "Failed to dispense item")
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Item dispensed successfully"})
}

func (h *HTTPHandler) Return(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.svc.Return(r.Context(), req.ItemID, req.QuantityToReturn, req.UserID, req.Notes)
	if err != nil {
		h.writeError(w, r, err, "Failed to return item")
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Item returned successfully"})
}

func (h *HTTPHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var req receiveRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.PricePerUnit.IsNegative() {
		writeJSON(w, http.StatusBadRequest, apiResponse{
			Success: false,
			Error:   "Invalid input",
			Details: map[string]string{"price_per_unit": "must not be negative"},
		})
		return
	}

	in := domain.ReceiveInput{
		Barcode:       req.Barcode,
		Name:          req.Name,
		Quantity:      *req.Quantity,
		Location:      req.Location,
		Category:      req.Category,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		MinStockLevel: 5,
		PricePerUnit:  req.PricePerUnit,
	}
	if req.MinStockLevel != nil {
		in.MinStockLevel = *req.MinStockLevel
	}

	item, err := h.svc.Receive(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err, "Failed to update inventory")
		return
	}
	writeJSON(w, http.StatusCreated, apiResponse{Success: true, Data: item, Message: "Inventory updated successfully"})
}

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if barcode := q.Get("barcode"); barcode != "" {
		item, err := h.svc.GetItemByBarcode(r.Context(), barcode)
		if errors.Is(err, domain.ErrItemNotFound) {
			writeJSON(w, http.StatusNotFound, apiResponse{Success: false, Error: "Item with this barcode not found"})
			return
		}
		if err != nil {
			h.writeError(w, r, err, "Failed to fetch inventory items")
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: item})
		return
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	items, total, err := h.svc.ListItems(r.Context(), domain.ListQuery{
		Search: q.Get("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.writeError(w, r, err, "Failed to fetch inventory items")
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: items, Total: &total})
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := h.svc.GetItem(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "Failed to fetch item")
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: item})
}

func (h *HTTPHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.PricePerUnit.IsNegative() {
		writeJSON(w, http.StatusBadRequest, apiResponse{
			Success: false,
			Error:   "Invalid input",
			Details: map[string]string{"price_per_unit": "must not be negative"},
		})
		return
	}

	in := domain.ItemUpdate{
		Barcode:       req.Barcode,
		Name:          req.Name,
		Location:      req.Location,
		Category:      req.Category,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		MinStockLevel: 5,
		PricePerUnit:  req.PricePerUnit,
	}
	if req.MinStockLevel != nil {
		in.MinStockLevel = *req.MinStockLevel
	}

	item, err := h.svc.UpdateItem(r.Context(), id, in)
	if err != nil {
		h.writeError(w, r, err, "Failed to update item")
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: item, Message: "Item updated successfully"})
}

func (h *HTTPHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeactivateItem(r.Context(), id); err != nil {
		h.writeError(w, r, err, "Failed to delete item")
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Item deleted successfully"})
}

func (h *HTTPHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	history, err := h.svc.ItemHistory(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "Failed to fetch transaction history")
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: history})
}

func (h *HTTPHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, r, err, "Failed to load inventory dashboard data")
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: data})
}

func (h *HTTPHandler) Reports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f domain.ReportFilter
	var err error
	if f.Start, err = parseDate(q.Get("startDate")); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "Invalid startDate"})
		return
	}
	if f.End, err = parseDate(q.Get("endDate")); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "Invalid endDate"})
		return
	}
	f.Type = q.Get("type")
	f.UserID = q.Get("userId")

	rows, err := h.svc.ListTransactions(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err, "Failed to load inventory reports")
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: rows})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode parses and validates the request body, writing the 400 response
// itself on failure.
func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "invalid request body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{
			Success: false,
			Error:   "Invalid input",
			Details: validationDetails(err),
		})
		return false
	}
	return true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, apiResponse{Success: false, Error: "Item not found"})
	case errors.Is(err, domain.ErrInsufficientStock):
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "Insufficient stock available"})
	case errors.Is(err, domain.ErrNoAdjustmentNeeded):
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "New quantity is the same as the current quantity. No adjustment needed."})
	case errors.Is(err, domain.ErrDuplicateBarcode):
		writeJSON(w, http.StatusConflict, apiResponse{Success: false, Error: "An item with this barcode already exists."})
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Error: fallback})
	}
}

func validationDetails(err error) map[string]string {
	details := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Param() != "" {
				details[fe.Field()] = "failed on the '" + fe.Tag() + "=" + fe.Param() + "' rule"
			} else {
				details[fe.Field()] = "failed on the '" + fe.Tag() + "' rule"
			}
		}
	}
	return details
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "Item ID is required"})
		return 0, false
	}
	return id, true
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, errors.New("unrecognized date format")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
