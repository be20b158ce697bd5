package domain

import "time"

type ListingStatus string

const (
	ListingActive ListingStatus = "active"
	ListingSold   ListingStatus = "sold"
)

// Listing is the minimal projection settlement effects touch: mark sold on
// a transaction fee, set the boost window on a promotion. Full listing CRUD
// lives outside this service.
type Listing struct {
	ID           string        `json:"id"`
	SellerID     string        `json:"seller_id"`
	Status       ListingStatus `json:"status"`
	BoostValue   int           `json:"boost_value"`
	BoostedUntil *time.Time    `json:"boosted_until,omitempty"`
	Views        int64         `json:"views"`
	QuotesCount  int64         `json:"quotes_count"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// ResponseRate is quotes received per hundred views. Defined as 0 when the
// listing has no views yet.
func (l *Listing) ResponseRate() float64 {
	if l.Views == 0 {
		return 0
	}
	return float64(l.QuotesCount) / float64(l.Views) * 100
}
