package directory

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"directory-console/internal/apperr"
	"directory-console/internal/models"
)

// Member fields named in validation errors, in the order they are checked.
const (
	FieldMemberName = "MemberName"
	FieldGender     = "GenderID"
	FieldMobile     = "MobileNumber"
	FieldEmail      = "EmailID"
	FieldBirthYear  = "BirthYear"
	FieldFamily     = "FamilyID"
	FieldBuilding   = "BuildingID"
)

const MinBirthYear = 1900

var fieldOrder = []string{FieldMemberName, FieldGender, FieldMobile, FieldEmail, FieldBirthYear, FieldFamily, FieldBuilding}

type memberRules struct {
	MemberName   string `json:"MemberName" validate:"required"`
	GenderID     string `json:"GenderID" validate:"required"`
	MobileNumber string `json:"MobileNumber" validate:"required,mobile"`
	EmailID      string `json:"EmailID" validate:"omitempty,email"`
	FamilyID     string `json:"FamilyID" validate:"required_unless=NewFamily true"`
	BuildingID   string `json:"BuildingID" validate:"required_if=NewFamily true"`
	NewFamily    bool   `json:"newFamily"`
}

var ruleMessages = map[string]map[string]string{
	FieldMemberName: {"required": "Name is required"},
	FieldGender:     {"required": "Gender is required"},
	FieldMobile: {
		"required": "Mobile number is required",
		"mobile":   "Mobile number must be 10 digits",
	},
	FieldEmail:    {"email": "Email address is invalid"},
	FieldFamily:   {"required_unless": "Family is required"},
	FieldBuilding: {"required_if": "Building is required"},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	if err := v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return isMobile(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

func isMobile(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Validate checks a trimmed member payload. currentYear bounds the birth year.
func Validate(in models.MemberInput, currentYear int) error {
	found := make(map[string]string)

	err := validate.Struct(memberRules{
		MemberName:   in.MemberName,
		GenderID:     in.GenderID,
		MobileNumber: in.MobileNumber,
		EmailID:      in.EmailID,
		FamilyID:     in.FamilyID,
		BuildingID:   in.BuildingID,
		NewFamily:    in.NewFamily,
	})
	if err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			found[fe.Field()] = ruleMessages[fe.Field()][fe.Tag()]
		}
	}

	if in.BirthYear != 0 && (in.BirthYear < MinBirthYear || in.BirthYear > currentYear) {
		found[FieldBirthYear] = fmt.Sprintf("Birth year must be between %d and %d", MinBirthYear, currentYear)
	}

	verr := &apperr.ValidationError{}
	for _, field := range fieldOrder {
		if msg, ok := found[field]; ok {
			verr.Add(field, msg)
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}
