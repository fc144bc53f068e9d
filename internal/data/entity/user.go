package entity

type UserRole string

const (
	RoleCustomer     UserRole = "customer"
	RoleProfessional UserRole = "professional"
	RoleAdmin        UserRole = "admin"
)

type User struct {
	Base
	Name     string   `db:"name"`
	Email    string   `db:"email"`
	Phone    *string  `db:"phone"`
	Role     UserRole `db:"role"`
	Rating   float64  `db:"rating"`
	IsActive bool     `db:"is_active"`
}
