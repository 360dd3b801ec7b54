package models

// Category is a flat catalog entry referenced by competitions.
type Category struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
