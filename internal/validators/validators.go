package validators

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/BruksfildServices01/clinic-scheduler/internal/timezone"
)

// Register adiciona as tags "hhmm" e "ymd" ao validator do gin.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return RegisterOn(v)
}

func RegisterOn(v *validator.Validate) error {
	if err := v.RegisterValidation("hhmm", isHHMM); err != nil {
		return err
	}
	return v.RegisterValidation("ymd", isYMD)
}

func isHHMM(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := timezone.ParseHM(s)
	return err == nil
}

func isYMD(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := timezone.ParseDate(s, timezone.DefaultTimezone)
	return err == nil
}
