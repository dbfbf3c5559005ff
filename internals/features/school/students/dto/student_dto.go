// file: internals/features/school/students/dto/student_dto.go
package dto

import (
	model "sekolahku_backend/internals/features/school/students/model"
	helper "sekolahku_backend/internals/helpers"
)

/* ======= REQUESTS ======= */

type CreateStudentRequest struct {
	StudentCode string  `json:"student_code" validate:"required,min=2,max=20"`
	Name        string  `json:"name" validate:"required,min=2,max=200"`
	Level       string  `json:"level" validate:"required"`
	Class       *string `json:"class" validate:"omitempty,max=50"`
	EnrollYear  int     `json:"enroll_year" validate:"required,gte=2000,lte=2100"`
}

func (r *CreateStudentRequest) ToModel() *model.StudentModel {
	return &model.StudentModel{
		StudentCode:       r.StudentCode,
		StudentName:       r.Name,
		StudentLevel:      helper.CanonicalLevel(r.Level),
		StudentClass:      r.Class,
		StudentEnrollYear: r.EnrollYear,
		StudentIsActive:   true,
	}
}

type UpdateStudentRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=200"`
	Level    *string `json:"level"`
	Class    *string `json:"class" validate:"omitempty,max=50"`
	IsActive *bool   `json:"is_active"`
}

// ApplyTo patches the row and reports whether the level changed. Level
// values are canonicalized before comparison.
func (r *UpdateStudentRequest) ApplyTo(m *model.StudentModel) (levelChanged bool) {
	if r.Name != nil {
		m.StudentName = *r.Name
	}
	if r.Level != nil {
		canonical := helper.CanonicalLevel(*r.Level)
		if canonical != "" && !helper.SameLevel(canonical, m.StudentLevel) {
			m.StudentLevel = canonical
			levelChanged = true
		}
	}
	if r.Class != nil {
		m.StudentClass = r.Class
	}
	if r.IsActive != nil {
		m.StudentIsActive = *r.IsActive
	}
	return levelChanged
}
