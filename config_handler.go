package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"stockroom/config"
	"stockroom/logging"
	"stockroom/units"
)

// ヘルパー関数: エラーをJSONで返す
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// GetConfigHandler は現在の設定を返します
func GetConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg := config.GetConfig()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cfg)
	}
}

// SaveConfigHandler は設定を保存します。
// ログレベルと単位ファイルは保存後すぐに反映し、DB とリッスンアドレスは再起動後に反映します。
func SaveConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var newCfg config.Config
		if err := json.NewDecoder(r.Body).Decode(&newCfg); err != nil {
			writeJSONError(w, "Invalid request.", http.StatusBadRequest)
			return
		}

		enc, err := units.ParseEncoding(newCfg.UnitsEncoding)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := validateFilePath(newCfg.UnitsFile); err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := config.SaveConfig(newCfg); err != nil {
			if errors.Is(err, config.ErrUnknownDriver) || errors.Is(err, config.ErrInvalidPageSize) ||
				errors.Is(err, config.ErrUnknownLogLevel) {
				writeJSONError(w, err.Error(), http.StatusBadRequest)
				return
			}
			log.Error().Err(err).Msg("Error saving config")
			writeJSONError(w, "Failed to save settings.", http.StatusInternalServerError)
			return
		}

		saved := config.GetConfig()
		zerolog.SetGlobalLevel(logging.ParseLevel(saved.LogLevel))
		if saved.UnitsFile != "" {
			if _, err := units.LoadFile(saved.UnitsFile, enc); err != nil {
				log.Warn().Err(err).Str("file", saved.UnitsFile).Msg("Failed to reload units file")
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Settings saved."})
	}
}

// ファイルパスを検証するヘルパー関数
func validateFilePath(path string) error {
	if path == "" {
		return nil // 空の場合は検証しない
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.New("File not found: " + path)
		}
		log.Error().Err(err).Msg("Error checking file path")
		return errors.New("Failed to check the file path.")
	}
	if info.IsDir() {
		return errors.New("Path is a folder, not a file: " + path)
	}
	return nil
}
