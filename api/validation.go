package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"classportal/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const progressStatusTag = "progress_status"

var (
	translator   ut.Translator
	registerOnce sync.Once
)

// registerValidators installs English messages, JSON/form field names and the custom
// tags on gin's validator engine. Safe to call more than once.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		english := en.New()
		translator, _ = ut.New(english, english).GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(v, translator)

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})

		_ = v.RegisterValidation(progressStatusTag, func(fl validator.FieldLevel) bool {
			return models.ValidStatus(fl.Field().String())
		})
		_ = v.RegisterTranslation(progressStatusTag, translator,
			func(trans ut.Translator) error {
				return trans.Add(progressStatusTag, fmt.Sprintf("{0} must be one of %s, %s or %s",
					models.StatusUpcoming, models.StatusInProgress, models.StatusDone), true)
			},
			func(trans ut.Translator, fe validator.FieldError) string {
				msg, _ := trans.T(progressStatusTag, fe.Field())
				return msg
			})
	})
}

// bindingMessage turns a bind error into a client message.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && translator != nil {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fe.Translate(translator))
		}
		return "Invalid request: " + strings.Join(msgs, "; ")
	}
	return fmt.Sprintf("Invalid request: %v", err)
}

// classHeader scopes a request to a class, e.g. "X-Class-Id: tsi1".
const classHeader = "X-Class-Id"

// classFromRequest reads the class scope from the header, the query string, or a form field.
func classFromRequest(c *gin.Context) string {
	class := c.GetHeader(classHeader)
	if class == "" {
		class = c.Query("class")
	}
	if class == "" {
		class = c.PostForm("class")
	}
	return strings.ToLower(strings.TrimSpace(class))
}
