package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"bptracker/internal/apperr"
)

const (
	SourceOCR    = "ocr"
	SourceManual = "manual"
)

// Reading is one recorded blood-pressure and pulse measurement.
type Reading struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RecordedAt time.Time `gorm:"not null;index" json:"timestamp"`
	Systolic   int       `gorm:"not null" json:"systolic" validate:"min=50,max=300"`
	Diastolic  int       `gorm:"not null" json:"diastolic" validate:"min=30,max=200"`
	Pulse      int       `gorm:"not null" json:"pulse" validate:"min=30,max=250"`
	Source     string    `gorm:"type:varchar(16);not null;default:manual" json:"source"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"-"`
}

var validate = validator.New()

// Validate checks the vital signs against clinically plausible ranges.
func (r *Reading) Validate() error {
	const op = "Reading.Validate"

	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.New(apperr.KindValidation, op, err, "")
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s %v outside %s", strings.ToLower(fe.Field()), fe.Value(), rangeOf(fe.Field())))
	}

	return apperr.New(apperr.KindValidation, op, err,
		"values out of expected range: "+strings.Join(msgs, "; "))
}

func rangeOf(field string) string {
	switch field {
	case "Systolic":
		return "50-300"
	case "Diastolic":
		return "30-200"
	case "Pulse":
		return "30-250"
	}
	return "allowed range"
}

// ReadingView is the wire form of a reading.
type ReadingView struct {
	Timestamp string `json:"timestamp"`
	Systolic  int    `json:"systolic"`
	Diastolic int    `json:"diastolic"`
	Pulse     int    `json:"pulse"`
}

// TimestampLayout is how timestamps are rendered to clients and in reports.
const TimestampLayout = "2006-01-02T15:04:05"

// View renders the reading with its timestamp in loc.
func (r *Reading) View(loc *time.Location) ReadingView {
	return ReadingView{
		Timestamp: r.RecordedAt.In(loc).Format(TimestampLayout),
		Systolic:  r.Systolic,
		Diastolic: r.Diastolic,
		Pulse:     r.Pulse,
	}
}

// VitalsView is the response body for newly stored readings.
type VitalsView struct {
	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`
	Pulse     int `json:"pulse"`
}

func (r *Reading) Vitals() VitalsView {
	return VitalsView{Systolic: r.Systolic, Diastolic: r.Diastolic, Pulse: r.Pulse}
}
