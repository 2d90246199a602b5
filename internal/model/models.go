package model

import "time"

// Product is a catalog product document. ID is the externally visible domain id;
// Key is the storage primary key and never leaves the persistence layer.
type Product struct {
	Key         string  `json:"-"`
	ID          int64   `json:"id"`
	Timestamp   string  `json:"timestamp"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Code        string  `json:"code"`
	Photo       string  `json:"photo"`
	Value       float64 `json:"value"`
	Stock       int     `json:"stock"`
}

// Cart is a shopping cart document. Products holds full product snapshots
// captured at add-time, in insertion order; the same product id may appear
// more than once. Revision guards concurrent rewrites of the snapshot list.
type Cart struct {
	Key       string    `json:"-"`
	Revision  int64     `json:"-"`
	ID        int64     `json:"id"`
	Timestamp string    `json:"timestamp"`
	Products  []Product `json:"products"`
}

// User is a credential document for the identity subsystem. Users are
// addressed by username, not by a numeric domain id.
type User struct {
	Key          string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Timestamp returns the creation-time label stamped onto new documents.
func Timestamp() string {
	return time.Now().Format("02/01/2006 15:04:05")
}
