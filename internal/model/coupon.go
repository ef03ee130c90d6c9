package model

import (
	"time"

	"github.com/google/uuid"
)

// CouponStatus is the redemption state of a coupon.
type CouponStatus string

const (
	CouponStatusActive  CouponStatus = "ACTIVE"
	CouponStatusUsed    CouponStatus = "USED"
	CouponStatusExpired CouponStatus = "EXPIRED"
)

// DefaultCouponValidity is how long an issued coupon stays redeemable.
const DefaultCouponValidity = 30 * 24 * time.Hour

// Coupon is one coupon issued to a customer by an issuance job.
type Coupon struct {
	Code       string       `json:"code" db:"code"`
	CustomerID string       `json:"customerId" db:"customer_id"`
	JobID      int64        `json:"jobId" db:"job_id"`
	Status     CouponStatus `json:"status" db:"status"`
	IssuedAt   time.Time    `json:"issuedAt" db:"issued_at"`
	ExpiresAt  time.Time    `json:"expiresAt" db:"expires_at"`
}

// NewCoupon issues an active coupon with a random code. A non-positive
// validity falls back to DefaultCouponValidity so ExpiresAt is always after IssuedAt.
func NewCoupon(jobID int64, customerID string, now time.Time, validity time.Duration) Coupon {
	if validity <= 0 {
		validity = DefaultCouponValidity
	}
	return Coupon{
		Code:       uuid.NewString(),
		CustomerID: customerID,
		JobID:      jobID,
		Status:     CouponStatusActive,
		IssuedAt:   now,
		ExpiresAt:  now.Add(validity),
	}
}
