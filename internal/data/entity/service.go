package entity

// ServiceOffering is a catalog item. The catalog itself is managed
// elsewhere; bookings only read it to snapshot title/price/duration.
type ServiceOffering struct {
	Base
	Title    string `db:"title"`
	Price    int64  `db:"price"`
	Duration int    `db:"duration"`
	IsActive bool   `db:"is_active"`
}
