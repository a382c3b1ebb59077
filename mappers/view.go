package mappers

import (
	"stockroom/format"
	"stockroom/model"
)

// ToProductView は model.Product を画面表示用の model.ProductView に変換します。
func ToProductView(p model.Product, locale string) model.ProductView {
	view := model.ProductView{
		Product:       p,
		QuantityText:  format.Quantity(p.Quantity, locale),
		QuantityInput: format.QuantityInput(p.Quantity),
		CreatedAtText: format.DateToLocal(p.CreatedAt, locale),
	}
	if p.UpdatedAt.Valid {
		view.UpdatedAtText = format.DateToLocal(p.UpdatedAt.Time, locale)
	}
	return view
}

func ToProductViews(products []model.Product, locale string) []model.ProductView {
	views := make([]model.ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, ToProductView(p, locale))
	}
	return views
}
