package models

import "time"

const (
	DefaultStoreLogo  = "default-store.png"
	DefaultStoreCover = "default-cover.png"
)

type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	Country string `json:"country,omitempty"`
}

type SocialMedia struct {
	Facebook  string `json:"facebook,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Instagram string `json:"instagram,omitempty"`
}

type StoreTheme struct {
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`
	FontFamily     string `json:"fontFamily"`
}

type StoreSettings struct {
	AllowReviews      bool `json:"allowReviews"`
	ShowInventory     bool `json:"showInventory"`
	EnableChatSupport bool `json:"enableChatSupport"`
}

type StoreAnalytics struct {
	VisitCount  int64     `json:"visitCount"`
	SalesCount  int64     `json:"salesCount"`
	Revenue     float64   `json:"revenue"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type Store struct {
	ID           int64
	Name         string
	Description  string
	Logo         string
	CoverImage   string
	OwnerID      int64
	Owner        *StoreOwner
	ContactEmail string
	ContactPhone string
	Address      Address
	SocialMedia  SocialMedia
	IsActive     bool
	Theme        StoreTheme
	Settings     StoreSettings
	Analytics    StoreAnalytics
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func DefaultTheme() StoreTheme {
	return StoreTheme{
		PrimaryColor:   "#3498db",
		SecondaryColor: "#2ecc71",
		FontFamily:     "Roboto",
	}
}

func DefaultSettings() StoreSettings {
	return StoreSettings{AllowReviews: true}
}

// StoreOwner is the owner summary embedded in store responses.
type StoreOwner struct {
	ID    int64
	Name  string
	Email string
}
