package entity

import "time"

// Estados de usuario.
const (
	UserActive    = "active"
	UserInactive  = "inactive"
	UserSuspended = "suspended"
)

// User representa un usuario del sistema (pertenece a una Company). El rol define sus permisos.
type User struct {
	ID           string
	CompanyID    string
	Email        string
	PasswordHash string // bcrypt
	Name         string
	Role         string // admin, contador, vendedor, bodeguero
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active informa si el usuario puede iniciar sesión.
func (u *User) Active() bool { return u.Status == UserActive }
