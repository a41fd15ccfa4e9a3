package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
)

type User struct {
	ID           string      `json:"id" db:"id"`
	Email        string      `json:"email" db:"email"`
	FullName     string      `json:"full_name" db:"full_name"`
	Role         string      `json:"role" db:"role"`
	GroupID      null.String `json:"group_id" db:"group_id"`
	GroupName    null.String `json:"group_name,omitempty" db:"group_name"`
	PasswordHash []byte      `json:"-" db:"password_hash"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
	LastLogin    null.Time   `json:"-" db:"last_login"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

// CheckPassword compares pwd against the stored hash in constant time.
func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) Identity() policy.Identity {
	return policy.Identity{ID: u.ID, Email: u.Email, Role: u.Role}
}

func (u User) IsStudent() bool { return u.Role == policy.RoleStudent }
func (u User) IsTeacher() bool { return u.Role == policy.RoleTeacher }
func (u User) IsCurator() bool { return u.Role == policy.RoleCurator }

// NewUser contains information needed to register a new User.
type NewUser struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
	Role     string `json:"role" validate:"required,role"`
	GroupID  string `json:"group_id" validate:"omitempty,uuid4"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.Email = core.CleanString(nu.Email, true)
	nu.FullName = core.CleanString(nu.FullName)
	nu.Role = core.CleanString(nu.Role, true)
	nu.GroupID = core.CleanString(nu.GroupID)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	if nu.GroupID != "" && nu.Role != policy.RoleStudent {
		return core.NewValidationError(nil, core.FieldError{Field: "group_id", Error: errGroupOnStudentsOnly})
	}
	return svc.checkEmailUniqueness(nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing
// User. Nil fields are left untouched; GroupID set to the empty string
// clears the group assignment.
type UpdateUser struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	FullName *string `json:"full_name" validate:"omitempty"`
	Role     *string `json:"role" validate:"omitempty,role"`
	GroupID  *string `json:"group_id" validate:"omitempty,uuid4"`
}

func (uu *UpdateUser) HasUpdates() bool {
	return uu.Email != nil || uu.Password != nil || uu.FullName != nil || uu.Role != nil || uu.GroupID != nil
}

func (uu *UpdateUser) Validate(validate *validator.Validate) error {
	if uu.Email != nil {
		*uu.Email = core.CleanString(*uu.Email, true)
	}
	if uu.FullName != nil {
		*uu.FullName = core.CleanString(*uu.FullName)
	}
	if uu.Role != nil {
		*uu.Role = core.CleanString(*uu.Role, true)
	}
	if uu.GroupID != nil {
		*uu.GroupID = core.CleanString(*uu.GroupID)
	}
	if !uu.HasUpdates() {
		return core.NewValidationError(ErrNothingToUpdate)
	}
	return validate.Struct(uu)
}

// Update carries the column changes of a partial update as applied by a
// Repository. Nil fields are left untouched.
type Update struct {
	Email        *string
	FullName     *string
	Role         *string
	GroupID      *null.String
	PasswordHash []byte
	LastLogin    *time.Time
}

func (up Update) IsZero() bool {
	return up.Email == nil && up.FullName == nil && up.Role == nil &&
		up.GroupID == nil && up.PasswordHash == nil && up.LastLogin == nil
}
