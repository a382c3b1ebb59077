// Package vendors は仕入先の一覧・登録・削除とレポート出力の HTTP ハンドラーです。
package vendors

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"stockroom/database"
	"stockroom/format"
	"stockroom/metrics"
	"stockroom/model"
	"stockroom/render"
	"stockroom/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var now = time.Now

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{"message": message})
}

// ListVendorsPageHandler は仕入先一覧画面を返します (GET /vendors)。
func ListVendorsPageHandler(db *sqlx.DB, rd *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendors, err := database.GetAllVendors(db)
		if err != nil {
			log.Error().Err(err).Msg("Error getting all vendors")
			http.Error(w, format.DatabaseErrorMsg("Failed to fetch vendors."), http.StatusInternalServerError)
			return
		}
		counts, err := database.GetVendorProductCounts(db)
		if err != nil {
			log.Error().Err(err).Msg("Error counting products per vendor")
			http.Error(w, format.DatabaseErrorMsg("Failed to fetch vendors."), http.StatusInternalServerError)
			return
		}
		if err := rd.HTML(w, http.StatusOK, render.PageVendors, model.VendorPage{Vendors: vendors, Counts: counts}); err != nil {
			log.Error().Err(err).Msg("Failed to render vendors page")
		}
	}
}

// ListVendorsHandler は仕入先一覧を JSON で返します (GET /api/vendors)。
func ListVendorsHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendors, err := database.GetAllVendors(db)
		if err != nil {
			log.Error().Err(err).Msg("Error getting all vendors")
			writeJSONError(w, format.DatabaseErrorMsg("Failed to fetch vendors."), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, vendors)
	}
}

type createRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"omitempty,email"`
	ImageURL string `json:"imageUrl" validate:"omitempty,max=2048"`
}

// CreateVendorHandler は仕入先を登録します (POST /api/vendors/create)。
func CreateVendorHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input createRequest
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeJSONError(w, "Invalid request.", http.StatusBadRequest)
			return
		}
		input.Name = strings.TrimSpace(input.Name)
		input.Email = strings.TrimSpace(input.Email)
		if err := validate.Struct(input); err != nil {
			writeJSONError(w, "Vendor name is required and email must be valid.", http.StatusBadRequest)
			return
		}

		v, err := database.CreateVendor(db, model.Vendor{Name: input.Name, Email: input.Email, ImageURL: input.ImageURL})
		if err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				writeJSONError(w, "A vendor with this name already exists.", http.StatusConflict)
				return
			}
			log.Error().Err(err).Str("name", input.Name).Msg("Error creating vendor")
			writeJSONError(w, format.DatabaseErrorMsg("Failed to Create Vendor."), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, v)
	}
}

// DeleteVendorHandler は仕入先を削除します (POST /api/vendors/delete/{id})。
// 品目が紐付いている仕入先は削除できません。
func DeleteVendorHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			writeJSONError(w, "Vendor id is required.", http.StatusBadRequest)
			return
		}

		if err := database.DeleteVendor(db, id); err != nil {
			switch {
			case errors.Is(err, database.ErrNotFound):
				writeJSONError(w, "Vendor not found.", http.StatusNotFound)
			case errors.Is(err, database.ErrVendorInUse):
				writeJSONError(w, "Vendor still has products and cannot be deleted.", http.StatusConflict)
			default:
				log.Error().Err(err).Str("id", id).Msg("Error deleting vendor")
				writeJSONError(w, format.DatabaseErrorMsg("Failed to Delete Vendor."), http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Vendor deleted."})
	}
}

// ReportHandler は仕入先の在庫レポートを xlsx でダウンロードさせます (GET /vendors/{id}/report.xlsx)。
func ReportHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := database.GetVendorByID(db, r.PathValue("id"))
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			log.Error().Err(err).Msg("Error getting vendor for report")
			http.Error(w, format.DatabaseErrorMsg("Failed to fetch vendor."), http.StatusInternalServerError)
			return
		}
		products, err := database.GetProductsByVendor(db, v.ID)
		if err != nil {
			log.Error().Err(err).Str("vendor", v.ID).Msg("Error getting products for report")
			http.Error(w, format.DatabaseErrorMsg("Failed to fetch products."), http.StatusInternalServerError)
			return
		}

		var buf bytes.Buffer
		if err := report.WriteVendorWorkbook(&buf, *v, products); err != nil {
			log.Error().Err(err).Str("vendor", v.ID).Msg("Failed to build workbook")
			http.Error(w, "Failed to generate report.", http.StatusInternalServerError)
			return
		}

		filename := report.Filename(v.Name, "xlsx", now())
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		if _, err := buf.WriteTo(w); err != nil {
			log.Warn().Err(err).Msg("Failed to send workbook")
			return
		}
		metrics.ReportsGenerated.WithLabelValues("xlsx").Inc()
	}
}
