package model

import "stockroom/pagination"

// FormState はフォーム再表示時のエラー情報です。
// Errors のキーはフォームの name 属性（vendorId, productName, ...）です。
type FormState struct {
	ErrorMessage string              `json:"errorMessage"`
	Errors       map[string][]string `json:"errors"`
}

func (s FormState) HasErrors() bool {
	return s.ErrorMessage != "" || len(s.Errors) > 0
}

// AddError はフィールドにエラーメッセージを追加します。
func (s *FormState) AddError(field, message string) {
	if s.Errors == nil {
		s.Errors = make(map[string][]string)
	}
	s.Errors[field] = append(s.Errors[field], message)
}

// ProductView は画面表示用に整形済みの品目です。
type ProductView struct {
	Product
	QuantityText  string `json:"quantityText"`
	QuantityInput string `json:"-"`
	CreatedAtText string `json:"createdAtText"`
	UpdatedAtText string `json:"updatedAtText"`
}

type ProductPage struct {
	Items       []ProductView         `json:"items"`
	Query       string                `json:"query"`
	CurrentPage int                   `json:"currentPage"`
	TotalPages  int                   `json:"totalPages"`
	Pages       []pagination.PageLink `json:"pages"`
}

// ProductForm はフォームに表示する入力値です。検証エラー時は送信された文字列をそのまま保持します。
type ProductForm struct {
	ID            string
	VendorID      string
	ProductName   string
	Barcode       string
	Quantity      string
	Unit          string
	ImageURL      string
	CreatedAtText string
	UpdatedAtText string
}

// ProductFormPage は作成・編集画面のテンプレートデータです。
type ProductFormPage struct {
	Title   string
	Action  string
	IsEdit  bool
	Form    ProductForm
	Vendors []VendorField
	Units   []string
	State   FormState
}

// VendorPage は仕入先一覧画面のテンプレートデータです。
type VendorPage struct {
	Vendors []Vendor
	Counts  map[string]int
}
