package group

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

type Group struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	StudentCount int       `json:"student_count" db:"student_count"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Detail is the read model of a single group with its member students.
type Detail struct {
	Group
	Students []user.User `json:"students"`
}

// NewGroup contains information needed to create a new Group.
type NewGroup struct {
	Name string `json:"name" validate:"required"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	return validate.Struct(ng)
}

// UpdateGroup defines what information may be provided to rename a Group.
type UpdateGroup struct {
	Name string `json:"name" validate:"required"`
}

func (ug *UpdateGroup) Validate(validate *validator.Validate) error {
	ug.Name = core.CleanString(ug.Name)
	return validate.Struct(ug)
}
