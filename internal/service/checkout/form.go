package checkout

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Form: данные формы оформления заказа. State необязателен.
// Порядок полей задаёт порядок проверки: сообщается первое незаполненное поле.
type Form struct {
	FirstName  string `json:"firstName" label:"First Name" validate:"required"`
	LastName   string `json:"lastName" label:"Last Name" validate:"required"`
	Email      string `json:"email" label:"Email" validate:"required,email"`
	Address    string `json:"address" label:"Address" validate:"required"`
	City       string `json:"city" label:"City" validate:"required"`
	State      string `json:"state" label:"State"`
	ZipCode    string `json:"zipCode" label:"Zip Code" validate:"required"`
	Country    string `json:"country" label:"Country" validate:"required"`
	CardName   string `json:"cardName" label:"Card Name" validate:"required"`
	CardNumber string `json:"cardNumber" label:"Card Number" validate:"required"`
	Expiry     string `json:"expiry" label:"Expiry" validate:"required"`
	CVV        string `json:"cvv" label:"Cvv" validate:"required"`
}

// ShippingAddress возвращает адрес доставки, который сохраняется в заказе.
// Платёжные данные в заказ не попадают.
func (f Form) ShippingAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Address:   f.Address,
		City:      f.City,
		State:     f.State,
		ZipCode:   f.ZipCode,
		Country:   f.Country,
	}
}

func (f Form) trimmed() Form {
	v := reflect.ValueOf(&f).Elem()
	for i := 0; i < v.NumField(); i++ {
		if field := v.Field(i); field.Kind() == reflect.String {
			field.SetString(strings.TrimSpace(field.String()))
		}
	}
	return f
}

// ValidationError: ошибка формы, пригодная для показа пользователю.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return domain.ErrValidation
}

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		if label := field.Tag.Get("label"); label != "" {
			return label
		}
		return field.Name
	})

	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)
	_ = validate.RegisterTranslation("required", translator,
		func(trans ut.Translator) error {
			return trans.Add("required", "{0} is required", true)
		},
		func(trans ut.Translator, fe validator.FieldError) string {
			msg, _ := trans.T("required", fe.Field())
			return msg
		},
	)
}

// Validate проверяет форму и возвращает *ValidationError для первого неверного поля.
func (f Form) Validate() error {
	err := validate.Struct(f.trimmed())
	if err == nil {
		return nil
	}

	var verrors validator.ValidationErrors
	if !errors.As(err, &verrors) {
		return err
	}
	if len(verrors) < 1 {
		return nil
	}

	first := verrors[0]
	return &ValidationError{Field: first.StructField(), Message: first.Translate(translator)}
}
