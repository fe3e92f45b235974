package businessflow

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/amirphl/vetverify/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	phoneDigitsRegex = regexp.MustCompile(`^[0-9]{10,12}$`)
	gstinRegex       = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z]{1}[1-9A-Z]{1}Z[0-9A-Z]{1}$`)
)

var profileValidator = newProfileValidator()

func newProfileValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone_digits", func(fl validator.FieldLevel) bool {
		return phoneDigitsRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("gstin", func(fl validator.FieldLevel) bool {
		return gstinRegex.MatchString(strings.ToUpper(fl.Field().String()))
	})
	return v
}

// DocumentUpload is a document the caller uploaded before submitting.
// Progress is the percentage reported by the document store; Err is the
// upload error, if any.
type DocumentUpload struct {
	Type        models.DocumentType
	URL         string
	Progress    float64
	Err         error
	ExpiresAt   *time.Time
	Checksum    *string
	SizeBytes   *int64
	ContentType *string
}

// Completed reports whether the upload finished without error
func (d DocumentUpload) Completed() bool {
	return d.Err == nil && d.Progress >= 100 && strings.TrimSpace(d.URL) != ""
}

// ProfileSubmission is the role-specific profile plus the uploaded documents
type ProfileSubmission struct {
	Profile   models.ProfileVariant
	Documents []DocumentUpload
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// normalizeVariant trims user input in place before validation
func normalizeVariant(p models.ProfileVariant) {
	switch d := p.(type) {
	case *models.VeterinarianDetails:
		d.FullName = strings.TrimSpace(d.FullName)
		d.LicenseNumber = strings.TrimSpace(d.LicenseNumber)
		d.Specializations = trimAll(d.Specializations)
		d.ServicesOffered = trimAll(d.ServicesOffered)
		d.LanguagesSpoken = trimAll(d.LanguagesSpoken)
		d.Bio = trimPtr(d.Bio)
		for i := range d.Clinics {
			c := &d.Clinics[i]
			c.ClinicName = strings.TrimSpace(c.ClinicName)
			c.ClinicAddress = strings.TrimSpace(c.ClinicAddress)
			c.ClinicPhone = strings.TrimSpace(c.ClinicPhone)
			c.GooglePlaceID = trimPtr(c.GooglePlaceID)
		}
	case *models.VendorDetails:
		d.BusinessName = strings.TrimSpace(d.BusinessName)
		d.BusinessType = models.BusinessType(strings.TrimSpace(string(d.BusinessType)))
		d.LicenseNumber = strings.TrimSpace(d.LicenseNumber)
		d.BusinessAddress = strings.TrimSpace(d.BusinessAddress)
		d.BusinessPhone = strings.TrimSpace(d.BusinessPhone)
		d.GSTNumber = trimPtr(d.GSTNumber)
		if d.GSTNumber != nil {
			upper := strings.ToUpper(*d.GSTNumber)
			d.GSTNumber = &upper
		}
		d.OperatingHours = trimPtr(d.OperatingHours)
		d.Description = trimPtr(d.Description)
		d.ServicesOffered = trimAll(d.ServicesOffered)
	}
}

// validateProfile checks the variant against the account role and its field rules
func validateProfile(role models.Role, p models.ProfileVariant) error {
	if !role.IsProfessional() {
		return &ValidationError{Fields: []FieldError{{Field: "role", Message: fmt.Sprintf("role %s has no professional profile", role)}}}
	}
	if p == nil || reflect.ValueOf(p).IsNil() {
		return newValidationError("profile", "profile data is required")
	}
	if p.Role() != role {
		return newValidationError("role", fmt.Sprintf("a %s account cannot submit a %s profile", role, p.Role()))
	}

	normalizeVariant(p)
	if err := profileValidator.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("failed to validate profile: %w", err)
		}
		ve := &ValidationError{}
		for _, fe := range verrs {
			ve.Fields = append(ve.Fields, FieldError{Field: fieldPath(fe), Message: fieldMessage(fe)})
		}
		return ve
	}
	return nil
}

// fieldPath drops the struct name prefix ("VeterinarianDetails.clinics[0].clinic_phone")
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "phone_digits":
		return field + " must be 10 to 12 digits"
	case "gstin":
		return field + " is not a valid GST number"
	case "latitude", "longitude":
		return field + " is not a valid coordinate"
	default:
		return field + " is invalid"
	}
}

// checkDocuments verifies that enough distinct required document types completed uploading
func checkDocuments(role models.Role, docs []DocumentUpload, minTypes int) error {
	completed := make(map[models.DocumentType]struct{})
	var invalid []FieldError
	for i, d := range docs {
		if !d.Type.IsValid() {
			invalid = append(invalid, FieldError{
				Field:   fmt.Sprintf("documents[%d].type", i),
				Message: fmt.Sprintf("documents[%d].type %q is not a known document type", i, d.Type),
			})
			continue
		}
		if d.Completed() {
			completed[d.Type] = struct{}{}
		}
	}
	if len(invalid) > 0 {
		return &ValidationError{Fields: invalid}
	}

	var missing []models.DocumentType
	for _, t := range models.RequiredDocumentTypes(role) {
		if _, ok := completed[t]; !ok {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 || len(completed) < minTypes {
		return &DocumentsIncompleteError{Missing: missing, Uploaded: len(completed), Required: minTypes}
	}
	return nil
}

// checkDocumentOwnership rejects document URLs that point outside the submitter's storage prefix
func checkDocumentOwnership(accountUUID uuid.UUID, docs []DocumentUpload, owns func(uuid.UUID, string) bool) error {
	var invalid []FieldError
	for i, d := range docs {
		if d.URL == "" || owns(accountUUID, d.URL) {
			continue
		}
		invalid = append(invalid, FieldError{
			Field:   fmt.Sprintf("documents[%d].url", i),
			Message: fmt.Sprintf("documents[%d].url does not reference a document uploaded by this account", i),
		})
	}
	if len(invalid) > 0 {
		return &ValidationError{Fields: invalid}
	}
	return nil
}
