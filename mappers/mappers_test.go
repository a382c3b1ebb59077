package mappers

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stockroom/model"
)

var created = time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC)

func sample() model.Product {
	return model.Product{
		ID: "p1", VendorID: "v1", VendorName: "Acme Foods", Name: "Flour",
		Barcode: "4901234567894", ImageURL: "/img/flour.png", Quantity: 123456, Unit: "lb",
		CreatedAt: created,
	}
}

func TestToProductView(t *testing.T) {
	v := ToProductView(sample(), "en-US")
	assert.Equal(t, "1,234.56", v.QuantityText)
	assert.Equal(t, "1234.56", v.QuantityInput)
	assert.Equal(t, "March 5, 2024 at 2:07 PM", v.CreatedAtText)
	assert.Empty(t, v.UpdatedAtText)

	p := sample()
	p.UpdatedAt = sql.NullTime{Time: created.Add(26 * time.Hour), Valid: true}
	v = ToProductView(p, "ja-JP")
	assert.Equal(t, "2024年3月6日 16:07", v.UpdatedAtText)

	assert.Len(t, ToProductViews([]model.Product{sample(), sample()}, ""), 2)
	assert.NotNil(t, ToProductViews(nil, ""))
}

func TestProductToForm(t *testing.T) {
	f := ProductToForm(sample(), "en-US")
	assert.Equal(t, model.ProductForm{
		ID: "p1", VendorID: "v1", ProductName: "Flour", Barcode: "4901234567894",
		Quantity: "1234.56", Unit: "lb", ImageURL: "/img/flour.png",
		CreatedAtText: "March 5, 2024 at 2:07 PM",
	}, f)
}

func TestFormToInput(t *testing.T) {
	in := FormToInput(model.ProductForm{VendorID: " v1 ", ProductName: " Flour ", ImageURL: ""}, "96385074", 250, "kg")
	assert.Equal(t, model.ProductInput{VendorID: "v1", Name: "Flour", Barcode: "96385074", Quantity: 250, Unit: "kg"}, in)
}

func TestApplyReadOnly(t *testing.T) {
	f := model.ProductForm{ProductName: "typed", ImageURL: "/evil.png"}
	ApplyReadOnly(&f, sample(), "en-US")
	assert.Equal(t, "typed", f.ProductName)
	assert.Equal(t, "/img/flour.png", f.ImageURL)
	assert.Equal(t, "p1", f.ID)
	assert.Equal(t, "March 5, 2024 at 2:07 PM", f.CreatedAtText)
}
