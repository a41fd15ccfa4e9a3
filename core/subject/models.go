package subject

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

type Subject struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	TeacherID   string    `json:"teacher_id" db:"teacher_id"`
	TeacherName string    `json:"teacher_name,omitempty" db:"teacher_name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Name      string `json:"name" validate:"required"`
	TeacherID string `json:"teacher_id" validate:"required,uuid4"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.TeacherID = core.CleanString(ns.TeacherID)
	return validate.Struct(ns)
}

// UpdateSubject defines what information may be provided to modify an
// existing Subject. Nil fields are left untouched; reassigning the teacher
// goes through the same role check as creation.
type UpdateSubject struct {
	Name      *string `json:"name" validate:"omitempty"`
	TeacherID *string `json:"teacher_id" validate:"omitempty,uuid4"`
}

func (us *UpdateSubject) HasUpdates() bool {
	return us.Name != nil || us.TeacherID != nil
}

func (us *UpdateSubject) Validate(validate *validator.Validate) error {
	if us.Name != nil {
		*us.Name = core.CleanString(*us.Name)
	}
	if us.TeacherID != nil {
		*us.TeacherID = core.CleanString(*us.TeacherID)
	}
	if !us.HasUpdates() {
		return core.NewValidationError(ErrNothingToUpdate)
	}
	return validate.Struct(us)
}
