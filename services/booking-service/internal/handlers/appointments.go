package handlers

import (
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/salonbook/libs/auth"
	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/booking"
)

// List serves a client's own history.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	clientID := strings.TrimSpace(r.URL.Query().Get("client_id"))
	if clientID == "" {
		http.Error(w, "client_id required", http.StatusBadRequest)
		return
	}
	appts, err := h.svc.ClientAppointments(r.Context(), clientID, parseLimit(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toItems(appts))
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
	ClientID      string `json:"client_id"`
}

// Cancel is open to the owning client; an admin token lifts the ownership
// check.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req cancelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}
	clientID, ok := ownerOrAdmin(w, r, req.ClientID)
	if !ok {
		return
	}
	appt, err := h.svc.Cancel(r.Context(), req.AppointmentID, clientID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toItem(appt))
}

type rescheduleRequest struct {
	AppointmentID string `json:"appointment_id"`
	ClientID      string `json:"client_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

// Reschedule is open to the owning client; an admin token lifts the
// ownership check.
func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req rescheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}
	clientID, ok := ownerOrAdmin(w, r, req.ClientID)
	if !ok {
		return
	}
	date, start, ok := parseDateTime(w, req.Date, req.Time)
	if !ok {
		return
	}
	appt, err := h.svc.Reschedule(r.Context(), booking.RescheduleRequest{
		ID:       req.AppointmentID,
		ClientID: clientID,
		Date:     date,
		Start:    start,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toItem(appt))
}

// ownerOrAdmin returns the client id the ownership check runs against. An
// admin token yields "", which the service treats as unrestricted.
func ownerOrAdmin(w http.ResponseWriter, r *http.Request, clientID string) (string, bool) {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok && claims.Role == auth.RoleAdmin {
		return "", true
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		http.Error(w, "client_id required", http.StatusBadRequest)
		return "", false
	}
	return clientID, true
}
