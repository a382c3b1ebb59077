package main

import (
	"encoding/json"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"stockroom/loader"
	"stockroom/logging"
	"stockroom/metrics"
	"stockroom/product"
	"stockroom/render"
	"stockroom/vendors"
)

// newServerHandler はルーティング済みのハンドラーにリクエストログを付けて返します。
func newServerHandler(dbConn *sqlx.DB, rd *render.Renderer) http.Handler {
	mux := http.NewServeMux()
	SetupRoutes(mux, dbConn, rd)
	return logging.Middleware(mux)
}

func SetupRoutes(mux *http.ServeMux, dbConn *sqlx.DB, rd *render.Renderer) {
	// handle はルートのパターンをそのままメトリクスのラベルにします。
	handle := func(pattern string, h http.Handler) {
		mux.Handle(pattern, metrics.Instrument(pattern, h))
	}

	handle("GET /{$}", http.RedirectHandler("/products", http.StatusFound))

	handle("GET /products", product.ListProductsHandler(dbConn, rd))
	handle("GET /products/create", product.CreateFormHandler(dbConn, rd))
	handle("POST /products/create", product.CreateProductHandler(dbConn, rd))
	handle("GET /products/{id}/edit", product.EditFormHandler(dbConn, rd))
	handle("POST /products/{id}/edit", product.UpdateProductHandler(dbConn, rd))
	handle("POST /products/{id}/delete", product.DeleteProductHandler(dbConn))
	handle("GET /products/export.csv", product.ExportCSVHandler(dbConn))

	handle("GET /api/products", product.ProductsAPIHandler(dbConn))
	handle("GET /api/products/barcode/{code}", product.ProductByBarcodeHandler(dbConn))
	handle("POST /api/products/import", loader.ImportHandler(dbConn))
	handle("GET /api/pagination", product.PaginationAPIHandler())

	handle("GET /vendors", vendors.ListVendorsPageHandler(dbConn, rd))
	handle("GET /vendors/{id}/report.xlsx", vendors.ReportHandler(dbConn))
	handle("GET /api/vendors", vendors.ListVendorsHandler(dbConn))
	handle("POST /api/vendors/create", vendors.CreateVendorHandler(dbConn))
	handle("POST /api/vendors/delete/{id}", vendors.DeleteVendorHandler(dbConn))

	handle("GET /api/config", GetConfigHandler())
	handle("POST /api/config", SaveConfigHandler())

	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", healthHandler(dbConn))
}

func healthHandler(dbConn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := dbConn.PingContext(r.Context()); err != nil {
			log.Error().Err(err).Msg("Health check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
