package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gateway-emulator/internal/apperr"
	"gateway-emulator/internal/shipping"
	"github.com/go-chi/chi/v5"
)

const shippingTimeLayout = "2006-01-02 15:04:05"

type shippingError struct {
	Message    string              `json:"message"`
	StatusCode int                 `json:"status_code"`
	Errors     map[string][]string `json:"errors,omitempty"`
}

func writeShippingError(w http.ResponseWriter, err error) {
	e := apperr.As(err)
	status := httpStatus(err)
	body := shippingError{Message: e.Message, StatusCode: status}
	if e.Field != "" {
		body.Errors = map[string][]string{e.Field: {e.Message}}
	}
	writeJSON(w, status, body)
}

// shipmentIDs accepts a single id or a list, each as a number or a numeric string.
type shipmentIDs []int64

func (s *shipmentIDs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var raw []shipping.FlexString
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		ids := make([]int64, 0, len(raw))
		for _, r := range raw {
			id, err := strconv.ParseInt(string(r), 10, 64)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		*s = ids
		return nil
	}

	var raw shipping.FlexString
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = nil
		return nil
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return err
	}
	*s = shipmentIDs{id}
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	CompanyID int    `json:"company_id"`
	CreatedAt string `json:"created_at"`
	Token     string `json:"token"`
}

type orderResponse struct {
	OrderID          string `json:"order_id"`
	SROrderID        int64  `json:"sr_order_id"`
	ShipmentID       int64  `json:"shipment_id"`
	Status           string `json:"status"`
	StatusCode       int    `json:"status_code"`
	AWBCode          string `json:"awb_code"`
	CourierCompanyID string `json:"courier_company_id"`
	CourierName      string `json:"courier_name"`
}

type assignAWBRequest struct {
	ShipmentID shipping.FlexString `json:"shipment_id"`
	CourierID  shipping.FlexString `json:"courier_id"`
}

type awbData struct {
	AWBCode          string `json:"awb_code"`
	CourierCompanyID string `json:"courier_company_id"`
	CourierName      string `json:"courier_name"`
	ShipmentID       int64  `json:"shipment_id"`
	OrderID          string `json:"order_id"`
	AssignedDateTime string `json:"assigned_date_time"`
	ETD              string `json:"etd"`
}

type awbResult struct {
	Data awbData `json:"data"`
}

type assignAWBResponse struct {
	AWBAssignStatus int       `json:"awb_assign_status"`
	Response        awbResult `json:"response"`
}

type pickupRequest struct {
	ShipmentID         shipmentIDs `json:"shipment_id"`
	ExpectedPickupDate string      `json:"expected_pickup_date"`
}

type pickupOutcome struct {
	ShipmentID          int64  `json:"shipment_id"`
	AWBCode             string `json:"awb_code,omitempty"`
	PickupStatus        int    `json:"pickup_status"`
	PickupScheduledDate string `json:"pickup_scheduled_date,omitempty"`
	PickupTokenNumber   string `json:"pickup_token_number,omitempty"`
	Message             string `json:"message"`
}

type pickupResponse struct {
	PickupStatus int             `json:"pickup_status"`
	Response     []pickupOutcome `json:"response"`
}

type trackActivity struct {
	Date          string `json:"date"`
	Status        string `json:"status"`
	Activity      string `json:"activity"`
	Location      string `json:"location"`
	SRStatus      int    `json:"sr-status"`
	SRStatusLabel string `json:"sr-status-label"`
}

type shipmentTrack struct {
	AWBCode          string `json:"awb_code"`
	CourierCompanyID string `json:"courier_company_id"`
	CourierName      string `json:"courier_name"`
	ShipmentID       int64  `json:"shipment_id"`
	OrderID          string `json:"order_id"`
	PickupDate       string `json:"pickup_date,omitempty"`
	DeliveredDate    string `json:"delivered_date,omitempty"`
	CurrentStatus    string `json:"current_status"`
	Origin           string `json:"origin"`
	Destination      string `json:"destination"`
	EDD              string `json:"edd"`
}

type trackingData struct {
	TrackStatus             int             `json:"track_status"`
	ShipmentStatus          int             `json:"shipment_status"`
	ShipmentTrack           []shipmentTrack `json:"shipment_track"`
	ShipmentTrackActivities []trackActivity `json:"shipment_track_activities"`
	TrackURL                string          `json:"track_url"`
	ETD                     string          `json:"etd"`
}

type trackingResponse struct {
	TrackingData trackingData `json:"tracking_data"`
}

type shippingHandler struct {
	shipments    *shipping.Emulator
	trackURLBase string
	originCity   string
}

func (h *shippingHandler) routes(r chi.Router) {
	r.Post("/auth/login", h.login)
	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware)
		r.Post("/orders/create", h.createOrder)
		r.Post("/orders/create/adhoc", h.createOrder)
		r.Post("/courier/assign/awb", h.assignAWB)
		r.Post("/courier/generate/pickup", h.generatePickup)
		r.Get("/courier/track/awb/{awb}", h.track)
	})
}

func (h *shippingHandler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.shipments.ValidateToken(r.Header.Get("Authorization")); err != nil {
			writeShippingError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *shippingHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeShippingError(w, err)
		return
	}
	login, err := h.shipments.GenerateToken(req.Email, req.Password)
	if err != nil {
		writeShippingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		ID:        login.ID,
		Email:     login.Email,
		CompanyID: login.CompanyID,
		CreatedAt: login.CreatedAt.UTC().Format(shippingTimeLayout),
		Token:     login.Token,
	})
}

func (h *shippingHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req shipping.OrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeShippingError(w, err)
		return
	}
	order, err := h.shipments.CreateOrder(r.Context(), req)
	if err != nil {
		writeShippingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{
		OrderID:    order.Request.OrderID,
		SROrderID:  order.ProviderOrderID,
		ShipmentID: order.ShipmentID,
		Status:     "NEW",
		StatusCode: 1,
	})
}

func (h *shippingHandler) assignAWB(w http.ResponseWriter, r *http.Request) {
	var req assignAWBRequest
	if err := decodeJSON(r, &req); err != nil {
		writeShippingError(w, err)
		return
	}
	shipmentID, err := strconv.ParseInt(string(req.ShipmentID), 10, 64)
	if err != nil {
		writeShippingError(w, apperr.Validation("shipment_id", "The shipment id field is required."))
		return
	}
	order, err := h.shipments.OrderByShipmentID(shipmentID)
	if err != nil {
		writeShippingError(w, err)
		return
	}
	order, err = h.shipments.GenerateAWB(r.Context(), order.Request.OrderID, string(req.CourierID))
	if err != nil {
		writeShippingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, assignAWBResponse{AWBAssignStatus: 1, Response: awbResult{Data: awbData{
		AWBCode:          order.AWB,
		CourierCompanyID: order.Courier.ID,
		CourierName:      order.Courier.Name,
		ShipmentID:       order.ShipmentID,
		OrderID:          order.Request.OrderID,
		AssignedDateTime: order.AWBAssignedAt.UTC().Format(shippingTimeLayout),
		ETD:              order.ETD.UTC().Format(shippingTimeLayout),
	}}})
}

func (h *shippingHandler) generatePickup(w http.ResponseWriter, r *http.Request) {
	var req pickupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeShippingError(w, err)
		return
	}
	if len(req.ShipmentID) == 0 {
		writeShippingError(w, apperr.Validation("shipment_id", "The shipment id field is required."))
		return
	}
	var date time.Time
	if raw := strings.TrimSpace(req.ExpectedPickupDate); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			writeShippingError(w, apperr.Validation("expected_pickup_date", "The expected pickup date must be in YYYY-MM-DD format."))
			return
		}
		date = parsed
	}

	outcomes := make([]pickupOutcome, 0, len(req.ShipmentID))
	allScheduled := true
	for _, id := range req.ShipmentID {
		outcome, err := h.schedulePickup(r, id, date)
		if err != nil && len(req.ShipmentID) == 1 {
			writeShippingError(w, err)
			return
		}
		if err != nil {
			allScheduled = false
		}
		outcomes = append(outcomes, outcome)
	}

	resp := pickupResponse{Response: outcomes}
	if allScheduled {
		resp.PickupStatus = 1
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *shippingHandler) schedulePickup(r *http.Request, shipmentID int64, date time.Time) (pickupOutcome, error) {
	outcome := pickupOutcome{ShipmentID: shipmentID}
	order, err := h.shipments.OrderByShipmentID(shipmentID)
	if err != nil {
		outcome.Message = apperr.As(err).Message
		return outcome, err
	}
	outcome.AWBCode = order.AWB
	if order.AWB == "" {
		err := apperr.Validation("shipment_id", "AWB is not assigned for shipment %d", shipmentID)
		outcome.Message = err.Message
		return outcome, err
	}

	pickup, err := h.shipments.SchedulePickup(r.Context(), order.AWB, date)
	if err != nil {
		outcome.Message = apperr.As(err).Message
		return outcome, err
	}
	outcome.PickupStatus = 1
	outcome.PickupScheduledDate = pickup.ScheduledDate.Format(time.DateOnly)
	outcome.PickupTokenNumber = pickup.ID
	outcome.Message = "Pickup is scheduled for " + outcome.PickupScheduledDate
	return outcome, nil
}

func (h *shippingHandler) track(w http.ResponseWriter, r *http.Request) {
	awb := chi.URLParam(r, "awb")
	tracking, err := h.shipments.TrackShipment(r.Context(), awb)
	if err != nil {
		writeShippingError(w, err)
		return
	}

	order := tracking.Order
	activities := make([]trackActivity, 0, len(tracking.Scans))
	var pickupDate string
	for _, scan := range tracking.Scans {
		activities = append(activities, trackActivity{
			Date:          scan.Date.UTC().Format(shippingTimeLayout),
			Status:        scan.Status,
			Activity:      scan.Activity,
			Location:      scan.Location,
			SRStatus:      scan.StatusID,
			SRStatusLabel: scan.Status,
		})
		if scan.Status == "PICKED UP" {
			pickupDate = scan.Date.UTC().Format(shippingTimeLayout)
		}
	}

	track := shipmentTrack{
		AWBCode:          order.AWB,
		CourierCompanyID: order.Courier.ID,
		CourierName:      order.Courier.Name,
		ShipmentID:       order.ShipmentID,
		OrderID:          order.Request.OrderID,
		PickupDate:       pickupDate,
		CurrentStatus:    tracking.Current.Status,
		Origin:           h.originCity,
		Destination:      order.Request.DestinationCity(),
		EDD:              order.ETD.UTC().Format(shippingTimeLayout),
	}
	if tracking.Delivered {
		track.DeliveredDate = tracking.Current.Date.UTC().Format(shippingTimeLayout)
	}

	writeJSON(w, http.StatusOK, trackingResponse{TrackingData: trackingData{
		TrackStatus:             1,
		ShipmentStatus:          tracking.Current.StatusID,
		ShipmentTrack:           []shipmentTrack{track},
		ShipmentTrackActivities: activities,
		TrackURL:                strings.TrimSuffix(h.trackURLBase, "/") + "/" + order.AWB,
		ETD:                     order.ETD.UTC().Format(shippingTimeLayout),
	}})
}
