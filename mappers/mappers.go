// Package mappers はモデルと画面用の型の相互変換を行います。
package mappers

import (
	"strings"

	"stockroom/format"
	"stockroom/model"
)

// ProductToForm は登録済みの品目を編集フォームの初期値にします。
func ProductToForm(p model.Product, locale string) model.ProductForm {
	view := ToProductView(p, locale)
	return model.ProductForm{
		ID:            p.ID,
		VendorID:      p.VendorID,
		ProductName:   p.Name,
		Barcode:       p.Barcode,
		Quantity:      view.QuantityInput,
		Unit:          p.Unit,
		ImageURL:      p.ImageURL,
		CreatedAtText: view.CreatedAtText,
		UpdatedAtText: view.UpdatedAtText,
	}
}

// FormToInput は検証済みのフォーム値を保存用の入力に変換します。
// barcode と unit は正規化済み、quantity は 1/100 単位の値を渡します。
func FormToInput(f model.ProductForm, barcode string, quantity int64, unit string) model.ProductInput {
	return model.ProductInput{
		VendorID: strings.TrimSpace(f.VendorID),
		Name:     strings.TrimSpace(f.ProductName),
		Barcode:  barcode,
		ImageURL: strings.TrimSpace(f.ImageURL),
		Quantity: quantity,
		Unit:     unit,
	}
}

// ApplyReadOnly は再表示するフォームに、保存済みの画像と日時を引き継ぎます。
func ApplyReadOnly(f *model.ProductForm, p model.Product, locale string) {
	f.ID = p.ID
	f.ImageURL = p.ImageURL
	f.CreatedAtText = format.DateToLocal(p.CreatedAt, locale)
	if p.UpdatedAt.Valid {
		f.UpdatedAtText = format.DateToLocal(p.UpdatedAt.Time, locale)
	}
}
