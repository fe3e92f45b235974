package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/vetverify/utils"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// BusinessType classifies vendor businesses
type BusinessType string

const (
	BusinessTypePetShop  BusinessType = "pet_shop"
	BusinessTypePharmacy BusinessType = "pharmacy"
	BusinessTypeGrooming BusinessType = "grooming"
	BusinessTypeBoarding BusinessType = "boarding"
	BusinessTypeTraining BusinessType = "training"
	BusinessTypeOther    BusinessType = "other"
)

// Clinic is a practice location of a veterinarian
type Clinic struct {
	ClinicName    string   `json:"clinic_name" validate:"required,min=2,max=255"`
	ClinicAddress string   `json:"clinic_address" validate:"required,min=10,max=500"`
	ClinicPhone   string   `json:"clinic_phone" validate:"required,phone_digits"`
	GooglePlaceID *string  `json:"google_place_id,omitempty" validate:"omitempty,max=255"`
	Latitude      *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude     *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
}

// VeterinarianDetails is the veterinarian arm of the profile variant
type VeterinarianDetails struct {
	FullName           string   `json:"full_name" validate:"required,min=3,max=255"`
	LicenseNumber      string   `json:"license_number" validate:"required,min=5,max=64"`
	Specializations    []string `json:"specializations" validate:"omitempty,dive,required,max=100"`
	ExperienceYears    int      `json:"experience_years" validate:"gte=0,lte=80"`
	Clinics            []Clinic `json:"clinics" validate:"required,min=1,dive"`
	EmergencyAvailable bool     `json:"emergency_available"`
	ConsultationFee    float64  `json:"consultation_fee" validate:"gte=0"`
	ServicesOffered    []string `json:"services_offered" validate:"omitempty,dive,required,max=100"`
	Bio                *string  `json:"bio,omitempty" validate:"omitempty,max=2000"`
	LanguagesSpoken    []string `json:"languages_spoken" validate:"omitempty,dive,required,max=50"`
}

// VendorDetails is the vendor arm of the profile variant
type VendorDetails struct {
	BusinessName       string       `json:"business_name" validate:"required,min=2,max=255"`
	BusinessType       BusinessType `json:"business_type" validate:"required,oneof=pet_shop pharmacy grooming boarding training other"`
	LicenseNumber      string       `json:"license_number" validate:"required,min=5,max=64"`
	GSTNumber          *string      `json:"gst_number,omitempty" validate:"omitempty,gstin"`
	BusinessAddress    string       `json:"business_address" validate:"required,min=10,max=500"`
	BusinessPhone      string       `json:"business_phone" validate:"required,phone_digits"`
	OperatingHours     *string      `json:"operating_hours,omitempty" validate:"omitempty,max=255"`
	DeliveryAvailable  bool         `json:"delivery_available"`
	DeliveryRadiusKM   *float64     `json:"delivery_radius_km,omitempty" validate:"omitempty,gte=0"`
	MinimumOrderAmount *float64     `json:"minimum_order_amount,omitempty" validate:"omitempty,gte=0"`
	Description        *string      `json:"description,omitempty" validate:"omitempty,max=2000"`
	ServicesOffered    []string     `json:"services_offered" validate:"omitempty,dive,required,max=100"`
}

// ProfileVariant is implemented by exactly one details type per professional role
type ProfileVariant interface {
	Role() Role
	DisplayName() string
	License() string
	ContactPhone() string
	Services() []string
}

func (d *VeterinarianDetails) Role() Role          { return RoleVeterinarian }
func (d *VeterinarianDetails) DisplayName() string { return d.FullName }
func (d *VeterinarianDetails) License() string     { return d.LicenseNumber }
func (d *VeterinarianDetails) Services() []string  { return d.ServicesOffered }

// ContactPhone returns the phone of the first clinic
func (d *VeterinarianDetails) ContactPhone() string {
	if len(d.Clinics) == 0 {
		return ""
	}
	return d.Clinics[0].ClinicPhone
}

func (d *VendorDetails) Role() Role           { return RoleVendor }
func (d *VendorDetails) DisplayName() string  { return d.BusinessName }
func (d *VendorDetails) License() string      { return d.LicenseNumber }
func (d *VendorDetails) ContactPhone() string { return d.BusinessPhone }
func (d *VendorDetails) Services() []string   { return d.ServicesOffered }

// ProfessionalProfile stores the role-specific data of a professional account.
// Role is the variant tag; Details holds the JSON of the matching details type only.
// Status always mirrors Account.ProfessionalStatus.
type ProfessionalProfile struct {
	ID              uint               `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID       uint               `gorm:"not null;uniqueIndex" json:"account_id"`
	Role            Role               `gorm:"size:32;not null;index" json:"role"`
	Status          ProfessionalStatus `gorm:"size:32;not null;index" json:"status"`
	DisplayName     string             `gorm:"size:255;not null;index" json:"display_name"`
	LicenseNumber   string             `gorm:"size:64;not null;index" json:"license_number"`
	Phone           string             `gorm:"size:20" json:"phone"`
	ServicesOffered pq.StringArray     `gorm:"type:text[];not null;default:'{}'" json:"services_offered"`
	Details         json.RawMessage    `gorm:"type:jsonb;not null" json:"details"`
	SubmittedAt     time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"submitted_at"`
	CreatedAt       time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	Account *Account `gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ProfessionalProfile) TableName() string {
	return "professional_profiles"
}

// BeforeCreate normalizes timestamps if zero
func (p *ProfessionalProfile) BeforeCreate(tx *gorm.DB) error {
	now := utils.UTCNow()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	if p.SubmittedAt.IsZero() {
		p.SubmittedAt = now
	}
	return nil
}

// SetVariant stores v as the profile data and refreshes the promoted columns
func (p *ProfessionalProfile) SetVariant(v ProfileVariant) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s profile: %w", v.Role(), err)
	}
	p.Role = v.Role()
	p.Details = raw
	p.DisplayName = v.DisplayName()
	p.LicenseNumber = v.License()
	p.Phone = v.ContactPhone()
	p.ServicesOffered = pq.StringArray(append([]string{}, v.Services()...))
	return nil
}

// Variant decodes Details according to Role
func (p *ProfessionalProfile) Variant() (ProfileVariant, error) {
	switch p.Role {
	case RoleVeterinarian:
		var d VeterinarianDetails
		if err := json.Unmarshal(p.Details, &d); err != nil {
			return nil, fmt.Errorf("failed to decode veterinarian profile %d: %w", p.ID, err)
		}
		return &d, nil
	case RoleVendor:
		var d VendorDetails
		if err := json.Unmarshal(p.Details, &d); err != nil {
			return nil, fmt.Errorf("failed to decode vendor profile %d: %w", p.ID, err)
		}
		return &d, nil
	default:
		return nil, fmt.Errorf("role %q has no professional profile", p.Role)
	}
}

// ProfessionalProfileFilter represents filter criteria for profile queries
type ProfessionalProfileFilter struct {
	ID            *uint
	AccountID     *uint
	AccountIDs    []uint
	Role          *Role
	Status        *ProfessionalStatus
	LicenseNumber *string
}
