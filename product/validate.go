package product

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"stockroom/barcode"
	"stockroom/database"
	"stockroom/format"
	"stockroom/mappers"
	"stockroom/model"
	"stockroom/units"
)

// 操作名。ErrorMessage の文言に使います。
const (
	ActionCreate = "Create"
	ActionUpdate = "Update"
)

// formFields はフォームの必須・長さの検証対象です。form タグはエラーのキーになります。
type formFields struct {
	VendorID    string `form:"vendorId" validate:"required"`
	ProductName string `form:"productName" validate:"required,max=255"`
	Barcode     string `form:"barcode" validate:"required"`
	Quantity    string `form:"quantity" validate:"required"`
	Unit        string `form:"unit" validate:"required,max=32"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	return v
}

var requiredMessages = map[string]string{
	"vendorId":    "Please select a vendor.",
	"productName": "Please enter a product name.",
	"barcode":     "Please enter a barcode.",
	"quantity":    "Please enter a quantity.",
	"unit":        "Please enter a unit.",
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return requiredMessages[fe.Field()]
	case "max":
		return fmt.Sprintf("Must be at most %s characters.", fe.Param())
	}
	return "Invalid value."
}

// MissingFieldsMessage は検証失敗時の全体メッセージです。
func MissingFieldsMessage(action string) string {
	return fmt.Sprintf("Missing Fields. Failed to %s Product.", action)
}

// ValidateForm はフォームを検証し、保存用の入力を返します。
// 検証に失敗した場合は ok=false とエラー内容を返し、書き込みは一切行いません。
// 仕入先の存在確認のみ dbtx を参照します。
func ValidateForm(dbtx database.DBTX, form model.ProductForm, action string) (input model.ProductInput, state model.FormState, ok bool, err error) {
	fields := formFields{
		VendorID:    strings.TrimSpace(form.VendorID),
		ProductName: strings.TrimSpace(form.ProductName),
		Barcode:     strings.TrimSpace(form.Barcode),
		Quantity:    strings.TrimSpace(form.Quantity),
		Unit:        strings.TrimSpace(form.Unit),
	}

	if vErr := validate.Struct(fields); vErr != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(vErr, &fieldErrs) {
			return model.ProductInput{}, state, false, vErr
		}
		for _, fe := range fieldErrs {
			state.AddError(fe.Field(), fieldMessage(fe))
		}
	}

	var code string
	if _, failed := state.Errors["barcode"]; !failed {
		if code, err = barcode.Normalize(fields.Barcode); err != nil {
			state.AddError("barcode", "Barcode must be a valid 8, 12, 13 or 14 digit GTIN.")
			err = nil
		}
	}

	var qty int64
	if _, failed := state.Errors["quantity"]; !failed {
		if qty, err = format.ParseQuantity(fields.Quantity); err != nil {
			state.AddError("quantity", "Quantity must be 0 or more with at most 2 decimal places.")
			err = nil
		}
	}

	if _, failed := state.Errors["vendorId"]; !failed {
		exists, existsErr := database.VendorExists(dbtx, fields.VendorID)
		if existsErr != nil {
			return model.ProductInput{}, state, false, existsErr
		}
		if !exists {
			state.AddError("vendorId", "Selected vendor does not exist.")
		}
	}

	if state.HasErrors() {
		state.ErrorMessage = MissingFieldsMessage(action)
		return model.ProductInput{}, state, false, nil
	}

	form.VendorID = fields.VendorID
	form.ProductName = fields.ProductName
	return mappers.FormToInput(form, code, qty, units.Normalize(fields.Unit)), state, true, nil
}
