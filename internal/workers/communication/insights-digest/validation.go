package insightsdigest

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"crm-insights/internal/models"
)

var e164 = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

func (in Input) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.BusinessID, validation.Required),
		validation.Field(&in.RecipientEmail, validation.Required, is.EmailFormat),
		validation.Field(&in.RecipientPhone, validation.Match(e164).Error("must be in E.164 format")),
		validation.Field(&in.Timeframe, validation.In(
			string(models.TimeframeToday),
			string(models.TimeframeYesterday),
			string(models.TimeframeThisWeek),
			string(models.TimeframeLastWeek),
			string(models.TimeframeThisMonth),
			string(models.TimeframeLastMonth),
			string(models.TimeframeThisYear),
		)),
	)
}
