package model

import "time"

// Recommendation is one derived advisory.
type Recommendation struct {
	Title           string   `json:"title"`
	Reason          string   `json:"reason"`
	Priority        int      `json:"priority"` // 1 (highest) to 3
	RelatedSections []string `json:"related_sections,omitempty"`
}

// Recommendations is the output of the recommendation engine.
type Recommendations struct {
	Summary string           `json:"summary"`
	Items   []Recommendation `json:"items,omitempty"`
}

// Flag marks a display item as fine, worth a look, or a risk.
type Flag string

const (
	FlagOK   Flag = "ok"
	FlagWarn Flag = "warn"
	FlagRisk Flag = "risk"
)

// SectionItem is one label/value row of a display section.
type SectionItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Flag  Flag   `json:"flag,omitempty"`
	Hint  string `json:"hint,omitempty"`
}

// Section is a flat display block consumed by the report renderer.
type Section struct {
	ID    string        `json:"id"`
	Title string        `json:"title"`
	Items []SectionItem `json:"items"`
	Notes []string      `json:"notes,omitempty"`
}

// StoredProfile is a persisted profile document and its ownership.
type StoredProfile struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Address   string        `json:"address"`
	Citycode  string        `json:"citycode,omitempty"`
	Profile   *HouseProfile `json:"profile"`
	CreatedAt time.Time     `json:"created_at"`
}

// CreditGrant is a payment-success event crediting a user.
type CreditGrant struct {
	UserID     string `json:"user_id"`
	Credits    int    `json:"credits"`
	PaymentRef string `json:"payment_ref"`
}
