package businessflow

import (
	"errors"
	"testing"

	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	ve, ok := AsValidation(err)
	require.True(t, ok, "expected validation error, got %v", err)
	var out []string
	for _, f := range ve.Fields {
		out = append(out, f.Field)
	}
	return out
}

func TestValidateVeterinarian(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(v *models.VeterinarianDetails)
		fields []string
	}{
		{"Valid", func(v *models.VeterinarianDetails) {}, nil},
		{"MissingName", func(v *models.VeterinarianDetails) { v.FullName = "   " }, []string{"full_name"}},
		{"ShortLicense", func(v *models.VeterinarianDetails) { v.LicenseNumber = "V1" }, []string{"license_number"}},
		{"NoClinic", func(v *models.VeterinarianDetails) { v.Clinics = nil }, []string{"clinics"}},
		{"BadClinicPhone", func(v *models.VeterinarianDetails) { v.Clinics[0].ClinicPhone = "98-76" }, []string{"clinics[0].clinic_phone"}},
		{"NegativeFee", func(v *models.VeterinarianDetails) { v.ConsultationFee = -1 }, []string{"consultation_fee"}},
		{"TooMuchExperience", func(v *models.VeterinarianDetails) { v.ExperienceYears = 81 }, []string{"experience_years"}},
		{"BadLatitude", func(v *models.VeterinarianDetails) { v.Clinics[0].Latitude = utils.ToPtr(120.0) }, []string{"clinics[0].latitude"}},
		{"BlankServicesAreDropped", func(v *models.VeterinarianDetails) { v.ServicesOffered = []string{" ", "Surgery"} }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validVet()
			tt.mutate(v)
			err := validateProfile(models.RoleVeterinarian, v)
			if tt.fields == nil {
				require.NoError(t, err)
				return
			}
			assert.ElementsMatch(t, tt.fields, fieldNames(t, err))
		})
	}
}

func TestValidateVendor(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(v *models.VendorDetails)
		fields []string
	}{
		{"Valid", func(v *models.VendorDetails) {}, nil},
		{"LowercaseGST", func(v *models.VendorDetails) { v.GSTNumber = utils.ToPtr(" 27aapfu0939f1zv ") }, nil},
		{"NoGST", func(v *models.VendorDetails) { v.GSTNumber = nil }, nil},
		{"BadGST", func(v *models.VendorDetails) { v.GSTNumber = utils.ToPtr("27AAPFU0939F1Z") }, []string{"gst_number"}},
		{"UnknownBusinessType", func(v *models.VendorDetails) { v.BusinessType = "zoo" }, []string{"business_type"}},
		{"ShortAddress", func(v *models.VendorDetails) { v.BusinessAddress = "Kolkata" }, []string{"business_address"}},
		{"PhoneWithLetters", func(v *models.VendorDetails) { v.BusinessPhone = "91234abc80" }, []string{"business_phone"}},
		{"NegativeRadius", func(v *models.VendorDetails) { v.DeliveryRadiusKM = utils.ToPtr(-5.0) }, []string{"delivery_radius_km"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validVendor()
			tt.mutate(v)
			err := validateProfile(models.RoleVendor, v)
			if tt.fields == nil {
				require.NoError(t, err)
				return
			}
			assert.ElementsMatch(t, tt.fields, fieldNames(t, err))
		})
	}

	t.Run("GSTIsNormalized", func(t *testing.T) {
		v := validVendor()
		v.GSTNumber = utils.ToPtr(" 27aapfu0939f1zv ")
		require.NoError(t, validateProfile(models.RoleVendor, v))
		assert.Equal(t, "27AAPFU0939F1ZV", *v.GSTNumber)
	})
}

func TestValidateProfileRole(t *testing.T) {
	assert.Equal(t, []string{"role"}, fieldNames(t, validateProfile(models.RoleVendor, validVet())))
	assert.Equal(t, []string{"role"}, fieldNames(t, validateProfile(models.RolePetParent, validVet())))
	assert.Equal(t, []string{"profile"}, fieldNames(t, validateProfile(models.RoleVeterinarian, nil)))

	var typedNil *models.VeterinarianDetails
	assert.Equal(t, []string{"profile"}, fieldNames(t, validateProfile(models.RoleVeterinarian, typedNil)))
}

func TestCheckDocuments(t *testing.T) {
	t.Run("Complete", func(t *testing.T) {
		assert.NoError(t, checkDocuments(models.RoleVeterinarian, completedDocs(uuid.New(), models.RoleVeterinarian), 2))
	})

	t.Run("DuplicatesCountOnce", func(t *testing.T) {
		docs := completedDocs(uuid.New(), models.RoleVeterinarian)
		docs[1] = docs[0]
		err := checkDocuments(models.RoleVeterinarian, docs, 2)
		de, ok := AsDocumentsIncomplete(err)
		require.True(t, ok)
		assert.Equal(t, 1, de.Uploaded)
		assert.Equal(t, []models.DocumentType{models.DocumentTypeDegree}, de.Missing)
	})

	t.Run("ExtraTypeMeetsMinimum", func(t *testing.T) {
		docs := append(completedDocs(uuid.New(), models.RoleVendor), DocumentUpload{
			Type: models.DocumentTypeExperienceCertificate, URL: "https://files.example.com/x.pdf", Progress: 100,
		})
		assert.NoError(t, checkDocuments(models.RoleVendor, docs, 3))
	})

	t.Run("BelowMinimum", func(t *testing.T) {
		err := checkDocuments(models.RoleVendor, completedDocs(uuid.New(), models.RoleVendor), 3)
		de, ok := AsDocumentsIncomplete(err)
		require.True(t, ok)
		assert.Empty(t, de.Missing)
		assert.Equal(t, 2, de.Uploaded)
		assert.Equal(t, 3, de.Required)
	})

	t.Run("InProgressOrFailed", func(t *testing.T) {
		docs := completedDocs(uuid.New(), models.RoleVendor)
		docs[0].Progress = 99.5
		docs[1].Err = errors.New("timeout")
		err := checkDocuments(models.RoleVendor, docs, 2)
		de, ok := AsDocumentsIncomplete(err)
		require.True(t, ok)
		assert.Len(t, de.Missing, 2)
	})

	t.Run("UnknownType", func(t *testing.T) {
		docs := append(completedDocs(uuid.New(), models.RoleVendor), DocumentUpload{Type: "selfie", URL: "u", Progress: 100})
		err := checkDocuments(models.RoleVendor, docs, 2)
		assert.Equal(t, []string{"documents[2].type"}, fieldNames(t, err))
		assert.False(t, IsDocumentsIncomplete(err))
	})
}
