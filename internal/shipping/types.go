package shipping

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// FlexString accepts both JSON strings and numbers, as clients send pincodes
// and phone numbers either way.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

type OrderItem struct {
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Units        int             `json:"units"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Discount     decimal.Decimal `json:"discount,omitempty"`
	Tax          decimal.Decimal `json:"tax,omitempty"`
	HSN          FlexString      `json:"hsn,omitempty"`
}

type OrderRequest struct {
	OrderID             string          `json:"order_id"`
	OrderDate           string          `json:"order_date"`
	PickupLocation      string          `json:"pickup_location"`
	ChannelID           FlexString      `json:"channel_id,omitempty"`
	Comment             string          `json:"comment,omitempty"`
	BillingCustomerName string          `json:"billing_customer_name"`
	BillingLastName     string          `json:"billing_last_name,omitempty"`
	BillingAddress      string          `json:"billing_address"`
	BillingAddress2     string          `json:"billing_address_2,omitempty"`
	BillingCity         string          `json:"billing_city"`
	BillingPincode      FlexString      `json:"billing_pincode"`
	BillingState        string          `json:"billing_state"`
	BillingCountry      string          `json:"billing_country"`
	BillingEmail        string          `json:"billing_email,omitempty"`
	BillingPhone        FlexString      `json:"billing_phone"`
	ShippingIsBilling   bool            `json:"shipping_is_billing"`
	ShippingCity        string          `json:"shipping_city,omitempty"`
	OrderItems          []OrderItem     `json:"order_items"`
	PaymentMethod       string          `json:"payment_method"`
	SubTotal            decimal.Decimal `json:"sub_total"`
	Length              float64         `json:"length"`
	Breadth             float64         `json:"breadth"`
	Height              float64         `json:"height"`
	Weight              float64         `json:"weight"`
}

// DestinationCity is where the last timeline checkpoints are located.
func (r OrderRequest) DestinationCity() string {
	if !r.ShippingIsBilling && r.ShippingCity != "" {
		return r.ShippingCity
	}
	return r.BillingCity
}

type OrderStatus string

const (
	StatusCreated         OrderStatus = "created"
	StatusAWBAssigned     OrderStatus = "awb_assigned"
	StatusPickupScheduled OrderStatus = "pickup_scheduled"
)

type Courier struct {
	ID   string
	Name string
}

type Pickup struct {
	ID            string
	AWB           string
	ScheduledDate time.Time
	Status        string
	CreatedAt     time.Time
}

type Order struct {
	Request         OrderRequest
	ShipmentID      int64
	ProviderOrderID int64
	Status          OrderStatus
	CreatedAt       time.Time
	AWB             string
	Courier         Courier
	AWBAssignedAt   *time.Time
	// ETD is the delivery horizon fixed when the AWB is assigned.
	ETD             time.Time
	Pickup          *Pickup

	reportedStage int
}

type Checkpoint struct {
	Status   string
	StatusID int
	Activity string
	Location string
	Date     time.Time
}

type Tracking struct {
	Order     Order
	Current   Checkpoint
	Scans     []Checkpoint
	Delivered bool
}

type Login struct {
	ID        int64
	Email     string
	CompanyID int
	CreatedAt time.Time
	Token     string
}
