package card

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultMessage is used when the form carries no custom message
	DefaultMessage = "May their soul be blessed with mercy and placed among the righteous believers."

	dateLayout        = "2006-01-02"
	displayDateLayout = "1/2/2006"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// RawForm holds the form fields exactly as submitted
type RawForm struct {
	FullName      string `form:"fullName" json:"fullName" validate:"required"`
	DateOfBirth   string `form:"dateOfBirth" json:"dateOfBirth"`
	DateOfDeath   string `form:"dateOfDeath" json:"dateOfDeath"`
	Age           string `form:"age" json:"age"`
	PlaceOfDeath  string `form:"placeOfDeath" json:"placeOfDeath"`
	CustomMessage string `form:"customMessage" json:"customMessage"`
}

// FormInput is the validated, immutable input of a render
type FormInput struct {
	FullName      string
	DateOfBirth   *time.Time
	DateOfDeath   *time.Time
	Age           *int
	PlaceOfDeath  string
	CustomMessage string
}

// ParseFormInput validates raw form fields. Blank optional fields stay unset.
func ParseFormInput(raw RawForm) (FormInput, error) {
	form := FormInput{
		FullName:      strings.TrimSpace(raw.FullName),
		PlaceOfDeath:  strings.TrimSpace(raw.PlaceOfDeath),
		CustomMessage: strings.TrimSpace(raw.CustomMessage),
	}
	if form.FullName == "" {
		return FormInput{}, newRenderError(ReasonMissingInput, "full name is required")
	}
	if form.CustomMessage == "" {
		form.CustomMessage = DefaultMessage
	}

	var err error
	if form.DateOfBirth, err = parseOptionalDate("date of birth", raw.DateOfBirth); err != nil {
		return FormInput{}, err
	}
	if form.DateOfDeath, err = parseOptionalDate("date of death", raw.DateOfDeath); err != nil {
		return FormInput{}, err
	}

	if age := strings.TrimSpace(raw.Age); age != "" {
		value, convErr := strconv.Atoi(age)
		if convErr != nil || value < 0 {
			return FormInput{}, newRenderError(ReasonMissingInput, "age must be a non-negative integer, got %q", age)
		}
		form.Age = &value
	}

	return form, nil
}

func parseOptionalDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, newRenderError(ReasonMissingInput, "%s must be formatted as YYYY-MM-DD, got %q", field, value)
	}
	return &t, nil
}

// DatesLine returns the "birth - death" line, empty unless both dates are set
func (f FormInput) DatesLine() string {
	if f.DateOfBirth == nil || f.DateOfDeath == nil {
		return ""
	}
	return f.DateOfBirth.Format(displayDateLayout) + " - " + f.DateOfDeath.Format(displayDateLayout)
}

// InfoLine joins the age and place of death with a bullet when both are present
func (f FormInput) InfoLine() string {
	parts := make([]string, 0, 2)
	if f.Age != nil {
		parts = append(parts, "Age "+strconv.Itoa(*f.Age)+" years")
	}
	if f.PlaceOfDeath != "" {
		parts = append(parts, f.PlaceOfDeath)
	}
	return strings.Join(parts, " • ")
}

// SanitizeLabel replaces every whitespace run with an underscore
func SanitizeLabel(label string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(label), "_")
}

// DownloadName is the file name offered when saving a rendered card
func DownloadName(fullName string) string {
	return "condolence-" + SanitizeLabel(fullName) + ".png"
}
