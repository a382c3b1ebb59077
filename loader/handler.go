package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// maxUploadSize は取込 CSV の最大サイズです。
const maxUploadSize = 32 << 20

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// ImportHandler は multipart の "file" フィールドで受け取った CSV を取り込みます。
// "sjis" フィールドが真なら Shift-JIS として読みます。
func ImportHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			writeJSONError(w, "Invalid upload.", http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSONError(w, "No file uploaded.", http.StatusBadRequest)
			return
		}
		defer file.Close()

		sjis, _ := strconv.ParseBool(r.FormValue("sjis"))
		result, err := ImportProducts(db, file, Options{ShiftJIS: sjis})
		if err != nil {
			if errors.Is(err, ErrBadHeader) {
				writeJSONError(w, err.Error(), http.StatusBadRequest)
				return
			}
			log.Error().Err(err).Str("file", header.Filename).Msg("Product import failed")
			writeJSONError(w, "Failed to import products.", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			Message string `json:"message"`
			*Result
		}{
			Message: fmt.Sprintf("Imported %d products (%d new, %d updated, %d skipped).",
				result.Inserted+result.Updated, result.Inserted, result.Updated, len(result.Skipped)),
			Result: result,
		})
	}
}
