package grade

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// Grade is the read model of a recorded mark; SubjectName, StudentName and
// TeacherID are joined in for display and ownership checks.
type Grade struct {
	ID          string    `json:"id" db:"id"`
	StudentID   string    `json:"student_id" db:"student_id"`
	SubjectID   string    `json:"subject_id" db:"subject_id"`
	Grade       int       `json:"grade" db:"grade"`
	WorkType    string    `json:"work_type" db:"work_type"`
	Date        string    `json:"date" db:"date"`
	SubjectName string    `json:"subject_name,omitempty" db:"subject_name"`
	StudentName string    `json:"student_name,omitempty" db:"student_name"`
	TeacherID   string    `json:"teacher_id,omitempty" db:"teacher_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// NewGrade contains information needed to record a new Grade. StudentID and
// SubjectID are immutable once the row exists.
type NewGrade struct {
	StudentID string `json:"student_id" validate:"required,uuid4"`
	SubjectID string `json:"subject_id" validate:"required,uuid4"`
	Grade     int    `json:"grade" validate:"required,min=1,max=5"`
	WorkType  string `json:"work_type" validate:"required"`
	Date      string `json:"date" validate:"required,dateonly"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.StudentID = core.CleanString(ng.StudentID)
	ng.SubjectID = core.CleanString(ng.SubjectID)
	ng.WorkType = core.CleanString(ng.WorkType)
	ng.Date = core.CleanString(ng.Date)
	return validate.Struct(ng)
}

// UpdateGrade defines what information may be provided to modify an existing
// Grade. Nil fields are left untouched.
type UpdateGrade struct {
	Grade    *int    `json:"grade" validate:"omitempty,min=1,max=5"`
	WorkType *string `json:"work_type" validate:"omitempty"`
	Date     *string `json:"date" validate:"omitempty,dateonly"`
}

func (ug *UpdateGrade) HasUpdates() bool {
	return ug.Grade != nil || ug.WorkType != nil || ug.Date != nil
}

func (ug *UpdateGrade) Validate(validate *validator.Validate) error {
	if ug.WorkType != nil {
		*ug.WorkType = core.CleanString(*ug.WorkType)
	}
	if ug.Date != nil {
		*ug.Date = core.CleanString(*ug.Date)
	}
	if !ug.HasUpdates() {
		return core.NewValidationError(ErrNothingToUpdate)
	}
	return validate.Struct(ug)
}

// QueryFilter applies AND operation on available fields when listing grades.
type QueryFilter struct {
	StudentID string
	GroupID   string
	SubjectID string
	TeacherID string
}
