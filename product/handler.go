package product

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"stockroom/barcode"
	"stockroom/config"
	"stockroom/database"
	"stockroom/format"
	"stockroom/mappers"
	"stockroom/metrics"
	"stockroom/model"
	"stockroom/pagination"
	"stockroom/render"
	"stockroom/report"
	"stockroom/units"
)

// now はテストで差し替えます。
var now = time.Now

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{"message": message})
}

// productsHref は検索条件を保ったページ番号付きの一覧 URL を返します。
func productsHref(base, query string) func(int) string {
	return func(page int) string {
		v := url.Values{}
		if query != "" {
			v.Set("query", query)
		}
		v.Set("page", strconv.Itoa(page))
		return base + "?" + v.Encode()
	}
}

// loadProductPage は検索条件とページ番号から一覧1ページ分のデータを作ります。
// ページ番号は総ページ数の範囲に丸めます。
func loadProductPage(db *sqlx.DB, query, rawPage, base string) (model.ProductPage, error) {
	cfg := config.GetConfig()
	totalPages, err := database.FetchProductsPages(db, query, cfg.ItemsPerPage)
	if err != nil {
		return model.ProductPage{}, err
	}
	page := pagination.Clamp(pagination.ParsePage(rawPage), totalPages)

	products, err := database.FetchFilteredProducts(db, model.ProductFilter{
		Query:   query,
		Page:    page,
		PerPage: cfg.ItemsPerPage,
	})
	if err != nil {
		return model.ProductPage{}, err
	}

	return model.ProductPage{
		Items:       mappers.ToProductViews(products, cfg.Locale),
		Query:       query,
		CurrentPage: page,
		TotalPages:  totalPages,
		Pages:       pagination.Links(page, totalPages, productsHref(base, query)),
	}, nil
}

// ListProductsHandler は品目一覧画面を返します (GET /products?query=&page=)。
func ListProductsHandler(db *sqlx.DB, rd *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		data, err := loadProductPage(db, q.Get("query"), q.Get("page"), "/products")
		if err != nil {
			log.Error().Err(err).Msg("Failed to load products")
			http.Error(w, format.DatabaseErrorMsg("Failed to fetch products."), http.StatusInternalServerError)
			return
		}
		if err := rd.HTML(w, http.StatusOK, render.PageProducts, data); err != nil {
			log.Error().Err(err).Msg("Failed to render products page")
		}
	}
}

// ProductsAPIHandler は一覧と同じ内容を JSON で返します (GET /api/products)。
func ProductsAPIHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		data, err := loadProductPage(db, q.Get("query"), q.Get("page"), "/products")
		if err != nil {
			log.Error().Err(err).Msg("Failed to load products")
			writeJSONError(w, format.DatabaseErrorMsg("Failed to fetch products."), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, data)
	}
}

// PaginationAPIHandler はページ番号と総ページ数からページ送りの表示列を返します。
// 値は丸めずにそのまま計算します (GET /api/pagination?page=&total=)。
func PaginationAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, err := strconv.Atoi(q.Get("page"))
		if err != nil {
			writeJSONError(w, "page must be an integer.", http.StatusBadRequest)
			return
		}
		total, err := strconv.Atoi(q.Get("total"))
		if err != nil {
			writeJSONError(w, "total must be an integer.", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			CurrentPage int                `json:"currentPage"`
			TotalPages  int                `json:"totalPages"`
			Pages       []pagination.Token `json:"pages"`
		}{page, total, pagination.Generate(page, total)})
	}
}

// ProductByBarcodeHandler はスキャンしたバーコードで品目を検索します (GET /api/products/barcode/{code})。
func ProductByBarcodeHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := barcode.Normalize(r.PathValue("code"))
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		p, err := database.GetProductByBarcode(db, barcode.Candidates(code))
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeJSONError(w, "Product not found.", http.StatusNotFound)
				return
			}
			log.Error().Err(err).Str("barcode", code).Msg("Failed to look up barcode")
			writeJSONError(w, format.DatabaseErrorMsg("Failed to fetch product."), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, mappers.ToProductView(*p, config.GetConfig().Locale))
	}
}

func formFromRequest(r *http.Request) model.ProductForm {
	return model.ProductForm{
		VendorID:    r.PostFormValue("vendorId"),
		ProductName: r.PostFormValue("productName"),
		Barcode:     r.PostFormValue("barcode"),
		Quantity:    r.PostFormValue("quantity"),
		Unit:        r.PostFormValue("unit"),
	}
}

// renderForm はフォーム画面を返します。仕入先の取得に失敗した場合は 500 です。
func renderForm(w http.ResponseWriter, db *sqlx.DB, rd *render.Renderer, status int, page model.ProductFormPage) {
	vendors, err := database.GetVendorFields(db)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch vendor fields")
		http.Error(w, format.DatabaseErrorMsg("Failed to fetch vendors."), http.StatusInternalServerError)
		return
	}
	page.Vendors = vendors
	page.Units = units.Canonical()
	if err := rd.HTML(w, status, render.PageProductForm, page); err != nil {
		log.Error().Err(err).Msg("Failed to render product form")
	}
}

func createPage(form model.ProductForm, state model.FormState) model.ProductFormPage {
	return model.ProductFormPage{Title: "Create Product", Action: "/products/create", Form: form, State: state}
}

func editPage(form model.ProductForm, state model.FormState) model.ProductFormPage {
	return model.ProductFormPage{
		Title:  "Edit Product",
		Action: "/products/" + url.PathEscape(form.ID) + "/edit",
		IsEdit: true,
		Form:   form,
		State:  state,
	}
}

// CreateFormHandler は空の作成フォームを返します (GET /products/create)。
func CreateFormHandler(db *sqlx.DB, rd *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderForm(w, db, rd, http.StatusOK, createPage(model.ProductForm{}, model.FormState{}))
	}
}

// saveErrorState は保存時の DB エラーをフォームの状態に変換し、返すステータスを決めます。
func saveErrorState(err error, action string) (model.FormState, int) {
	var state model.FormState
	state.ErrorMessage = format.DatabaseErrorMsg("Failed to " + action + " Product.")
	if errors.Is(err, database.ErrDuplicate) {
		state.AddError("barcode", "A product with this barcode already exists.")
		return state, http.StatusUnprocessableEntity
	}
	return state, http.StatusInternalServerError
}

// CreateProductHandler は作成フォームの送信を処理します (POST /products/create)。
func CreateProductHandler(db *sqlx.DB, rd *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission.", http.StatusBadRequest)
			return
		}
		form := formFromRequest(r)

		input, state, ok, err := ValidateForm(db, form, ActionCreate)
		if err != nil {
			log.Error().Err(err).Msg("Failed to validate product form")
			state.ErrorMessage = format.DatabaseErrorMsg("Failed to Create Product.")
			renderForm(w, db, rd, http.StatusInternalServerError, createPage(form, state))
			return
		}
		if !ok {
			renderForm(w, db, rd, http.StatusUnprocessableEntity, createPage(form, state))
			return
		}

		p, err := database.CreateProduct(db, input, now())
		if err != nil {
			log.Error().Err(err).Str("barcode", input.Barcode).Msg("Failed to create product")
			state, status := saveErrorState(err, ActionCreate)
			renderForm(w, db, rd, status, createPage(form, state))
			return
		}
		log.Info().Str("id", p.ID).Str("name", p.Name).Msg("Product created")
		http.Redirect(w, r, "/products", http.StatusSeeOther)
	}
}

// EditFormHandler は登録済みの値を入れた編集フォームを返します (GET /products/{id}/edit)。
func EditFormHandler(db *sqlx.DB, rd *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := database.GetProductByID(db, r.PathValue("id"))
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			log.Error().Err(err).Msg("Failed to fetch product")
			http.Error(w, format.DatabaseErrorMsg("Failed to fetch product."), http.StatusInternalServerError)
			return
		}
		form := mappers.ProductToForm(*p, config.GetConfig().Locale)
		renderForm(w, db, rd, http.StatusOK, editPage(form, model.FormState{}))
	}
}

// UpdateProductHandler は編集フォームの送信を処理します (POST /products/{id}/edit)。
// 画像と登録日時はフォームから変更できません。
func UpdateProductHandler(db *sqlx.DB, rd *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		existing, err := database.GetProductByID(db, r.PathValue("id"))
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			log.Error().Err(err).Msg("Failed to fetch product")
			http.Error(w, format.DatabaseErrorMsg("Failed to fetch product."), http.StatusInternalServerError)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission.", http.StatusBadRequest)
			return
		}
		form := formFromRequest(r)
		mappers.ApplyReadOnly(&form, *existing, config.GetConfig().Locale)

		input, state, ok, err := ValidateForm(db, form, ActionUpdate)
		if err != nil {
			log.Error().Err(err).Msg("Failed to validate product form")
			state.ErrorMessage = format.DatabaseErrorMsg("Failed to Update Product.")
			renderForm(w, db, rd, http.StatusInternalServerError, editPage(form, state))
			return
		}
		if !ok {
			renderForm(w, db, rd, http.StatusUnprocessableEntity, editPage(form, state))
			return
		}

		if err := database.UpdateProduct(db, existing.ID, input, now()); err != nil {
			log.Error().Err(err).Str("id", existing.ID).Msg("Failed to update product")
			state, status := saveErrorState(err, ActionUpdate)
			renderForm(w, db, rd, status, editPage(form, state))
			return
		}
		log.Info().Str("id", existing.ID).Msg("Product updated")
		http.Redirect(w, r, "/products", http.StatusSeeOther)
	}
}

// DeleteProductHandler は品目を削除して一覧に戻ります (POST /products/{id}/delete)。
func DeleteProductHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := database.DeleteProduct(db, id); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			log.Error().Err(err).Str("id", id).Msg("Failed to delete product")
			http.Error(w, format.DatabaseErrorMsg("Failed to Delete Product."), http.StatusInternalServerError)
			return
		}
		log.Info().Str("id", id).Msg("Product deleted")
		http.Redirect(w, r, "/products", http.StatusSeeOther)
	}
}

// ExportCSVHandler は全品目を CSV でダウンロードさせます (GET /products/export.csv)。
func ExportCSVHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := database.GetAllProducts(db)
		if err != nil {
			log.Error().Err(err).Msg("Failed to fetch products for export")
			http.Error(w, format.DatabaseErrorMsg("Failed to export products."), http.StatusInternalServerError)
			return
		}

		filename := report.Filename("products", "csv", now())
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		if err := report.WriteProductsCSV(w, products, config.GetConfig().Locale); err != nil {
			log.Error().Err(err).Msg("Failed to write products csv")
			return
		}
		metrics.ReportsGenerated.WithLabelValues("csv").Inc()
	}
}
