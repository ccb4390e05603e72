package entity

import "time"

// Product listing states mirrored from the listing service.
const (
	ProductStatusAvailable = "AVAILABLE"
	ProductStatusReserved  = "RESERVED"
	ProductStatusSold      = "SOLD"
)

// Product is owned by the listing service; the chat core reads it to attach a
// listing snapshot to each room.
type Product struct {
	ID        string    `json:"id" firestore:"id"`
	SellerID  string    `json:"sellerId" firestore:"sellerId"`
	Title     string    `json:"title" firestore:"title"`
	Price     float64   `json:"price" firestore:"price"`
	Images    []string  `json:"images" firestore:"images"`
	Status    string    `json:"status" firestore:"status"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

type ProductSummary struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Price  float64  `json:"price"`
	Images []string `json:"images"`
	Status string   `json:"status"`
}

func (p *Product) Summary() *ProductSummary {
	return &ProductSummary{
		ID:     p.ID,
		Title:  p.Title,
		Price:  p.Price,
		Images: p.Images,
		Status: p.Status,
	}
}
