package billing

import (
	"time"

	"github.com/google/uuid"
)

// CampSite is one location and date range of a camp.
type CampSite struct {
	Location  string `json:"location"`
	State     string `json:"state"`
	District  string `json:"district"`
	PinCode   string `json:"pin_code"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// CampMetadata identifies the company and camp a record bills. It is stored
// and rendered verbatim.
type CampMetadata struct {
	CompanyID       string     `json:"company_id"`
	CompanyName     string     `json:"company_name"`
	CompanyState    string     `json:"company_state"`
	CompanyDistrict string     `json:"company_district"`
	CompanyPinCode  string     `json:"company_pin_code"`
	CompanyLandmark string     `json:"company_landmark"`
	CompanyAddress  string     `json:"company_address"`
	Camps           []CampSite `json:"camps"`
}

// Record is a finalized, numbered billing record.
type Record struct {
	ID            uuid.UUID    `json:"id"`
	BillingNumber string       `json:"billing_number"`
	Camp          CampMetadata `json:"camp"`
	LineItems     []LineItem   `json:"line_items"`
	Subtotal      float64      `json:"subtotal"`
	PartnerMargin float64      `json:"partner_margin"`
	Discount      float64      `json:"discount"`
	CouponCode    string       `json:"coupon_code,omitempty"`
	GrandTotal    float64      `json:"grand_total"`
	CreatedAt     time.Time    `json:"created_at"`
}

// NewRecord numbers a summary.
func NewRecord(number string, camp CampMetadata, summary Summary, createdAt time.Time) Record {
	return Record{
		ID:            uuid.New(),
		BillingNumber: number,
		Camp:          camp,
		LineItems:     summary.LineItems,
		Subtotal:      summary.Subtotal,
		PartnerMargin: summary.PartnerMargin,
		Discount:      summary.Discount,
		GrandTotal:    summary.GrandTotal,
		CreatedAt:     createdAt.UTC(),
	}
}
