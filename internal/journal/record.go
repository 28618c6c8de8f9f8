package journal

import "time"

// Receipt is one spending record in a session. Item, amount, date and time
// are opaque free-text strings; the model output they come from is
// unstructured and amounts can be "15유로" as easily as "15,000원".
type Receipt struct {
	ID          string    `json:"id"`
	ImageRef    string    `json:"image_ref"`
	ContentType string    `json:"content_type"`
	Item        string    `json:"item"`
	Amount      string    `json:"amount"`
	Date        string    `json:"date,omitempty"`
	Time        string    `json:"time,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

// Photo is one photo record in a session
type Photo struct {
	ID          string    `json:"id"`
	ImageRef    string    `json:"image_ref"`
	ContentType string    `json:"content_type"`
	Caption     string    `json:"caption"`
	TakenAt     string    `json:"taken_at,omitempty"`
	Location    string    `json:"location,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

// Session owns one traveler's accumulated records. Receipts and photos keep
// insertion order; records are immutable once added except for deletion.
type Session struct {
	ID        string    `json:"id"`
	Place     string    `json:"place"`
	Receipts  []Receipt `json:"receipts"`
	Photos    []Photo   `json:"photos"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
