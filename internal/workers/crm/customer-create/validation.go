package customercreate

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	schema "crm-insights/internal/common/validation"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()\-]{7,20}$`)

func GetInputSchema() schema.JSONSchema {
	return schema.JSONSchema{
		Type:     "object",
		Required: []string{"businessId", "name"},
		Properties: map[string]schema.Property{
			"businessId": {
				Type:        "string",
				Description: "Owning business (tenant) id",
				MinLength:   schema.Len(1),
				MaxLength:   schema.Len(64),
			},
			"name": {
				Type:        "string",
				Description: "Customer display name",
				MinLength:   schema.Len(1),
				MaxLength:   schema.Len(200),
			},
			"email": {
				Type:        "string",
				Description: "Contact email, unique per business",
				MaxLength:   schema.Len(255),
			},
			"phone": {
				Type:        "string",
				Description: "Contact phone number",
				MaxLength:   schema.Len(32),
			},
			"notes": {
				Type:        "string",
				Description: "Free-form notes",
				MaxLength:   schema.Len(2000),
			},
		},
		// Process variables carry more than this worker reads.
		AdditionalProperties: true,
	}
}

// Validate checks field formats after the schema has checked shape.
func (in Input) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.By(notBlank)),
		validation.Field(&in.Email, is.EmailFormat),
		validation.Field(&in.Phone, validation.Match(phonePattern)),
	)
}

func notBlank(value interface{}) error {
	if s, _ := value.(string); strings.TrimSpace(s) == "" {
		return validation.NewError("validation_blank", "cannot be blank")
	}
	return nil
}
