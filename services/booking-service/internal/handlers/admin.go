package handlers

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/clock"
)

type manualBookRequest struct {
	ClientID    string `json:"client_id"`
	ClientName  string `json:"client_name"`
	ClientPhone string `json:"client_phone"`
	MasterID    string `json:"master_id"`
	ServiceID   string `json:"service_id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Notes       string `json:"notes"`
}

func (h *BookingHandler) ManualBook(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req manualBookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ClientName) == "" || strings.TrimSpace(req.MasterID) == "" || strings.TrimSpace(req.ServiceID) == "" {
		http.Error(w, "client_name, master_id and service_id are required", http.StatusBadRequest)
		return
	}
	date, start, ok := parseDateTime(w, req.Date, req.Time)
	if !ok {
		return
	}
	appt, err := h.svc.ManualBook(r.Context(), booking.ManualRequest{
		ClientID:    strings.TrimSpace(req.ClientID),
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		MasterID:    strings.TrimSpace(req.MasterID),
		ServiceID:   strings.TrimSpace(req.ServiceID),
		Date:        date,
		Start:       start,
		Notes:       req.Notes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toItem(appt))
}

type completeRequest struct {
	AppointmentID string   `json:"appointment_id"`
	FinalPrice    *float64 `json:"final_price"`
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req completeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.AppointmentID) == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}
	appt, err := h.svc.Complete(r.Context(), strings.TrimSpace(req.AppointmentID), req.FinalPrice)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toItem(appt))
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodDelete) {
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	if _, err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Agenda serves a master's appointments, optionally narrowed to one date.
// Items carry client contact details, so the route is admin only.
func (h *BookingHandler) Agenda(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	masterID := strings.TrimSpace(q.Get("master_id"))
	if masterID == "" {
		http.Error(w, "master_id required", http.StatusBadRequest)
		return
	}
	var date clock.Date
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		d, err := clock.ParseDate(raw)
		if err != nil {
			http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		date = d
	}
	appts, err := h.svc.Agenda(r.Context(), masterID, date, parseLimit(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toItems(appts))
}

type daySchedule struct {
	Weekday  int    `json:"weekday"`
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
	IsDayOff bool   `json:"is_day_off"`
}

type workingHoursBody struct {
	MasterID   string        `json:"master_id,omitempty"`
	Configured bool          `json:"configured"`
	Days       []daySchedule `json:"days"`
}

// WorkingHours reads (GET) or replaces (PUT) a master's weekly schedule.
func (h *BookingHandler) WorkingHours(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, http.MethodPut) {
		return
	}
	masterID := strings.TrimSpace(r.URL.Query().Get("master_id"))
	if masterID == "" {
		http.Error(w, "master_id required", http.StatusBadRequest)
		return
	}

	if r.Method == http.MethodPut {
		var body workingHoursBody
		if !decodeJSON(w, r, &body) {
			return
		}
		wh, err := fromDays(body.Days)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.svc.UpdateWorkingHours(r.Context(), masterID, wh); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	wh, configured, err := h.svc.WorkingHours(r.Context(), masterID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, workingHoursBody{MasterID: masterID, Configured: configured, Days: toDays(wh)})
}

func toDays(wh availability.WorkingHours) []daySchedule {
	days := make([]daySchedule, 0, len(wh))
	for wd, d := range wh {
		day := daySchedule{Weekday: int(wd), IsDayOff: d.IsDayOff}
		if !d.IsDayOff {
			day.Start, day.End = d.Start.String(), d.End.String()
		}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Weekday < days[j].Weekday })
	return days
}

type badRequest string

func (e badRequest) Error() string { return string(e) }

func fromDays(days []daySchedule) (availability.WorkingHours, error) {
	if len(days) == 0 {
		return nil, badRequest("days required")
	}
	wh := availability.WorkingHours{}
	for _, d := range days {
		if d.Weekday < 0 || d.Weekday > 6 {
			return nil, badRequest("weekday must be 0 (Sunday) to 6 (Saturday)")
		}
		wd := time.Weekday(d.Weekday)
		if _, dup := wh[wd]; dup {
			return nil, badRequest("duplicate weekday " + wd.String())
		}
		if d.IsDayOff {
			wh[wd] = availability.DaySchedule{IsDayOff: true}
			continue
		}
		start, err := clock.ParseTimeOfDay(d.Start)
		if err != nil {
			return nil, badRequest("invalid start for " + wd.String())
		}
		end, err := clock.ParseTimeOfDay(d.End)
		if err != nil {
			return nil, badRequest("invalid end for " + wd.String())
		}
		wh[wd] = availability.DaySchedule{Start: start, End: end}
	}
	return wh, nil
}
