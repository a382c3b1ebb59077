package product

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/database"
	"stockroom/database/dbtest"
	"stockroom/render"
)

func newMux(t *testing.T, db *sqlx.DB) *http.ServeMux {
	t.Helper()
	now = func() time.Time { return dbtest.Now }
	t.Cleanup(func() { now = time.Now })

	rd := render.MustNew()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", ListProductsHandler(db, rd))
	mux.HandleFunc("GET /products/create", CreateFormHandler(db, rd))
	mux.HandleFunc("POST /products/create", CreateProductHandler(db, rd))
	mux.HandleFunc("GET /products/{id}/edit", EditFormHandler(db, rd))
	mux.HandleFunc("POST /products/{id}/edit", UpdateProductHandler(db, rd))
	mux.HandleFunc("POST /products/{id}/delete", DeleteProductHandler(db))
	mux.HandleFunc("GET /products/export.csv", ExportCSVHandler(db))
	mux.HandleFunc("GET /api/products", ProductsAPIHandler(db))
	mux.HandleFunc("GET /api/products/barcode/{code}", ProductByBarcodeHandler(db))
	mux.HandleFunc("GET /api/pagination", PaginationAPIHandler())
	return mux
}

func do(mux http.Handler, method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func seedItems(t *testing.T, db *sqlx.DB, vendorID string, n int) {
	for i := 1; i <= n; i++ {
		dbtest.SeedProduct(t, db, vendorID, fmt.Sprintf("Item %02d", i), fmt.Sprintf("%013d", i), int64(i*100), "ea")
	}
}

func TestListProducts_Paging(t *testing.T) {
	db := dbtest.New(t)
	v := dbtest.SeedVendor(t, db, "Acme Foods")
	seedItems(t, db, v.ID, 20)
	mux := newMux(t, db)

	rec := do(mux, http.MethodGet, "/products?page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Item 07")
	assert.NotContains(t, body, "Item 06")
	assert.Contains(t, body, `<span class="current" aria-current="page">2</span>`)
	assert.Contains(t, body, `<a href="/products?page=4">4</a>`)

	rec = do(mux, http.MethodGet, "/products?page=99", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Item 20")
	assert.Contains(t, rec.Body.String(), `<span class="current" aria-current="page">4</span>`)
}

func TestListProducts_Search(t *testing.T) {
	db := dbtest.New(t)
	v := dbtest.SeedVendor(t, db, "Acme Foods")
	dbtest.SeedProduct(t, db, v.ID, "Whole Wheat Flour", "4901234567894", 1250, "lb")
	dbtest.SeedProduct(t, db, v.ID, "Cane Sugar", "4006381333931", 100, "kg")

	rec := do(newMux(t, db), http.MethodGet, "/products?query=flour", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Whole Wheat Flour")
	assert.Contains(t, rec.Body.String(), "12.5")
	assert.NotContains(t, rec.Body.String(), "Cane Sugar")
}

func TestProductsAPI(t *testing.T) {
	db := dbtest.New(t)
	v := dbtest.SeedVendor(t, db, "Acme Foods")
	seedItems(t, db, v.ID, 60)

	rec := do(newMux(t, db), http.MethodGet, "/api/products?page=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []struct {
			Name         string `json:"name"`
			QuantityText string `json:"quantityText"`
		} `json:"items"`
		CurrentPage int `json:"currentPage"`
		TotalPages  int `json:"totalPages"`
		Pages       []struct {
			Label    string `json:"label"`
			Href     string `json:"href"`
			Current  bool   `json:"current"`
			Ellipsis bool   `json:"ellipsis"`
		} `json:"pages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.CurrentPage)
	assert.Equal(t, 10, resp.TotalPages)
	require.Len(t, resp.Items, 6)
	assert.Equal(t, "Item 25", resp.Items[0].Name)
	assert.Equal(t, "25", resp.Items[0].QuantityText)

	labels := make([]string, 0, len(resp.Pages))
	for _, p := range resp.Pages {
		labels = append(labels, p.Label)
	}
	assert.Equal(t, []string{"1", "...", "4", "5", "6", "...", "10"}, labels)
	assert.True(t, resp.Pages[3].Current)
	assert.True(t, resp.Pages[1].Ellipsis)
	assert.Empty(t, resp.Pages[1].Href)
}

func TestPaginationAPI(t *testing.T) {
	mux := newMux(t, dbtest.New(t))

	rec := do(mux, http.MethodGet, "/api/pagination?page=5&total=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"currentPage":5,"totalPages":10,"pages":[1,"...",4,5,6,"...",10]}`, rec.Body.String())

	rec = do(mux, http.MethodGet, "/api/pagination?page=2&total=0", nil)
	assert.JSONEq(t, `{"currentPage":2,"totalPages":0,"pages":[]}`, rec.Body.String())

	rec = do(mux, http.MethodGet, "/api/pagination?page=x&total=10", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"page must be an integer."}`, rec.Body.String())
}

func validForm(vendorID string) url.Values {
	return url.Values{
		"vendorId":    {vendorID},
		"productName": {"Flour"},
		"barcode":     {"4901234567894"},
		"quantity":    {"12.5"},
		"unit":        {"lbs"},
	}
}

func TestCreateProduct(t *testing.T) {
	db := dbtest.New(t)
	v := dbtest.SeedVendor(t, db, "Acme Foods")
	mux := newMux(t, db)

	rec := do(mux, http.MethodGet, "/products/create", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Acme Foods")

	rec = do(mux, http.MethodPost, "/products/create", validForm(v.ID))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/products", rec.Header().Get("Location"))

	all, err := database.GetAllProducts(db)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(1250), all[0].Quantity)
	assert.Equal(t, "lb", all[0].Unit)
	assert.True(t, dbtest.Now.Equal(all[0].CreatedAt))
}

func TestCreateProduct_ValidationError(t *testing.T) {
	db := dbtest.New(t)
	v := dbtest.SeedVendor(t, db, "Acme Foods")
	form := validForm(v.ID)
	form.Set("productName", "")
	form.Set("barcode", "12345")

	rec := do(newMux(t, db), http.MethodPost, "/products/create", form)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Missing Fields. Failed to Create Product.")
	assert.Contains(t, body, "Please enter a product name.")
	assert.Contains(t, body, `value="12345"`, "submitted values are kept")

	n, err := database.CountProducts(db, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateProduct_DuplicateBarcode(t *testing.T) {
	db := dbtest.New(t)
	v := dbtest.SeedVendor(t, db, "Acme Foods")
	dbtest.SeedProduct(t, db, v.ID, "Old Flour", "4901234567894", 100, "lb")

	rec := do(newMux(t, db), http.MethodPost, "/products/create", validForm(v.ID))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Database Error: Failed to Create Product.")
	assert.Contains(t, rec.Body.String(), "A product with this barcode already exists.")
}

func TestCreateProduct_EquivalentGTIN(t *testing.T) {
	db := dbtest.New(t)
	v := dbtest.SeedVendor(t, db, "Acme Foods")
	dbtest.SeedProduct(t, db, v.ID, "Old Flour", "4901234567894", 100, "lb")

	form := validForm(v.ID)
	form.Set("barcode", "04901234567894")
	rec := do(newMux(t, db), http.MethodPost, "/products/create", form)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "A product with this barcode already exists.")

	all, err := database.GetAllProducts(db)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdateProduct_EquivalentGTINOfOtherProduct(t *testing.T) {
	db := dbtest.New(t)
	v := dbtest.SeedVendor(t, db, "Acme Foods")
	dbtest.SeedProduct(t, db, v.ID, "Flour", "4901234567894", 100, "lb")
	sugar := dbtest.SeedProduct(t, db, v.ID, "Sugar", "4006381333931", 100, "kg")

	form := validForm(v.ID)
	form.Set("productName", "Sugar")
	form.Set("barcode", "04901234567894")
	rec := do(newMux(t, db), http.MethodPost, "/products/"+sugar.ID+"/edit", form)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Database Error: Failed to Update Product.")
	assert.Contains(t, rec.Body.String(), "A product with this barcode already exists.")

	got, err := database.GetProductByID(db, sugar.ID)
	require.NoError(t, err)
	assert.Equal(t, "4006381333931", got.Barcode)
}

func TestEditAndUpdateProduct(t *testing.T) {
	db := dbtest.New(t)
	v := dbtest.SeedVendor(t, db, "Acme Foods")
	other := dbtest.SeedVendor(t, db, "Bolt Supply")
	p := dbtest.SeedProduct(t, db, v.ID, "Flour", "4901234567894", 1250, "lb")
	mux := newMux(t, db)

	rec := do(mux, http.MethodGet, "/products/"+p.ID+"/edit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="Flour"`)
	assert.Contains(t, body, `value="12.5"`)
	assert.Contains(t, body, `value="March 5, 2024 at 2:07 PM" readonly`)

	form := validForm(other.ID)
	form.Set("productName", "Bread Flour")
	form.Set("quantity", "3")
	rec = do(mux, http.MethodPost, "/products/"+p.ID+"/edit", form)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	got, err := database.GetProductByID(db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bread Flour", got.Name)
	assert.Equal(t, "Bolt Supply", got.VendorName)
	assert.Equal(t, int64(300), got.Quantity)
	assert.True(t, got.UpdatedAt.Valid)
}

func TestUpdateProduct_ValidationError(t *testing.T) {
	db := dbtest.New(t)
	v := dbtest.SeedVendor(t, db, "Acme Foods")
	p := dbtest.SeedProduct(t, db, v.ID, "Flour", "4901234567894", 1250, "lb")

	form := validForm(v.ID)
	form.Set("quantity", "-1")
	rec := do(newMux(t, db), http.MethodPost, "/products/"+p.ID+"/edit", form)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing Fields. Failed to Update Product.")
	assert.Contains(t, rec.Body.String(), `action="/products/`+p.ID+`/edit"`)

	got, err := database.GetProductByID(db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), got.Quantity)
	assert.False(t, got.UpdatedAt.Valid)
}

func TestEditProduct_NotFound(t *testing.T) {
	mux := newMux(t, dbtest.New(t))
	assert.Equal(t, http.StatusNotFound, do(mux, http.MethodGet, "/products/missing/edit", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(mux, http.MethodPost, "/products/missing/edit", url.Values{}).Code)
	assert.Equal(t, http.StatusNotFound, do(mux, http.MethodPost, "/products/missing/delete", url.Values{}).Code)
}

func TestDeleteProduct(t *testing.T) {
	db := dbtest.New(t)
	v := dbtest.SeedVendor(t, db, "Acme Foods")
	p := dbtest.SeedProduct(t, db, v.ID, "Flour", "4901234567894", 1250, "lb")

	rec := do(newMux(t, db), http.MethodPost, "/products/"+p.ID+"/delete", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, err := database.GetProductByID(db, p.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestExportCSV(t *testing.T) {
	db := dbtest.New(t)
	v := dbtest.SeedVendor(t, db, "Acme Foods")
	dbtest.SeedProduct(t, db, v.ID, "Flour", "4901234567894", 1250, "lb")

	rec := do(newMux(t, db), http.MethodGet, "/products/export.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="products_inventory_20240305.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "Acme Foods,Flour,4901234567894,12.5,lb,")
}

func TestProductByBarcode(t *testing.T) {
	db := dbtest.New(t)
	v := dbtest.SeedVendor(t, db, "Acme Foods")
	dbtest.SeedProduct(t, db, v.ID, "Flour", "4901234567894", 1250, "lb")
	mux := newMux(t, db)

	rec := do(mux, http.MethodGet, "/api/products/barcode/04901234567894", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Flour"`)

	rec = do(mux, http.MethodGet, "/api/products/barcode/96385074", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(mux, http.MethodGet, "/api/products/barcode/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
