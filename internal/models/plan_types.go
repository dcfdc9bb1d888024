package models

import "time"

// Plan defines the model for the 'plans' table. A plan row is created
// lazily the first time a vendor webhook references its product ID.
type Plan struct {
	ID        int64     `json:"id" db:"id"`
	Vendor    Vendor    `json:"vendor" db:"vendor"`
	ProductID string    `json:"productId" db:"product_id"`
	Name      string    `json:"name" db:"name"`
	MaxUsers  int       `json:"maxUsers" db:"max_users"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
