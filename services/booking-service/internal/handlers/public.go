package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/clock"
)

type serviceItem struct {
	ServiceID       string  `json:"service_id"`
	Title           string  `json:"title"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"duration_minutes"`
	Category        string  `json:"category,omitempty"`
	Description     string  `json:"description,omitempty"`
}

func (h *BookingHandler) Services(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	services, err := h.svc.Services(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items := make([]serviceItem, 0, len(services))
	for _, s := range services {
		items = append(items, serviceItem{
			ServiceID:       s.ID,
			Title:           s.Title,
			Price:           s.Price,
			DurationMinutes: s.DurationMinutes,
			Category:        s.Category,
			Description:     s.Description,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

// serviceIDs accepts both repeated service_id parameters and comma lists.
func serviceIDs(values []string) []string {
	var ids []string
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	masterID := strings.TrimSpace(q.Get("master_id"))
	dateStr := strings.TrimSpace(q.Get("date"))
	ids := serviceIDs(q["service_id"])
	if masterID == "" || dateStr == "" || len(ids) == 0 {
		http.Error(w, "master_id, date and service_id are required", http.StatusBadRequest)
		return
	}
	date, err := clock.ParseDate(dateStr)
	if err != nil {
		http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	slots, err := h.svc.Slots(r.Context(), booking.SlotsQuery{MasterID: masterID, Date: date, ServiceIDs: ids})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if slots == nil {
		// closed day
		httpx.WriteJSON(w, http.StatusOK, []any{})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slots)
}

func (h *BookingHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	masterID := strings.TrimSpace(r.URL.Query().Get("master_id"))
	month, err := time.Parse("2006-01", strings.TrimSpace(r.URL.Query().Get("month")))
	if masterID == "" || err != nil {
		http.Error(w, "master_id and month (YYYY-MM) are required", http.StatusBadRequest)
		return
	}
	days, err := h.svc.Calendar(r.Context(), masterID, month.Year(), month.Month())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, days)
}

type bookRequest struct {
	ClientID   string   `json:"client_id"`
	MasterID   string   `json:"master_id"`
	Date       string   `json:"date"`
	Time       string   `json:"time"`
	ServiceIDs []string `json:"service_ids"`
	Notes      string   `json:"notes"`
}

type bookResponse struct {
	Appointments []appointmentItem `json:"appointments"`
	TotalPrice   float64           `json:"total_price"`
}

const replayHeader = "Idempotent-Replayed"

func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req bookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.MasterID = strings.TrimSpace(req.MasterID)
	if req.ClientID == "" || req.MasterID == "" || len(req.ServiceIDs) == 0 {
		http.Error(w, "client_id, master_id and service_ids are required", http.StatusBadRequest)
		return
	}
	date, start, ok := parseDateTime(w, req.Date, req.Time)
	if !ok {
		return
	}

	res, err := h.svc.Book(r.Context(), booking.BookRequest{
		ClientID:       req.ClientID,
		MasterID:       req.MasterID,
		Date:           date,
		Start:          start,
		ServiceIDs:     serviceIDs(req.ServiceIDs),
		Notes:          req.Notes,
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if res.Replayed {
		w.Header().Set(replayHeader, "true")
	}
	resp := bookResponse{Appointments: toItems(res.Appointments)}
	for _, a := range res.Appointments {
		resp.TotalPrice += a.Price
	}
	httpx.WriteJSON(w, http.StatusCreated, resp)
}
