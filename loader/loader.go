// Package loader は品目 CSV の取込を行います。
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"stockroom/barcode"
	"stockroom/database"
	"stockroom/format"
	"stockroom/metrics"
	"stockroom/model"
	"stockroom/units"
)

// Columns は取込 CSV のヘッダーです。
var Columns = []string{"vendor", "name", "barcode", "quantity", "unit"}

// ErrBadHeader はヘッダー行が Columns と一致しない場合のエラーです。
var ErrBadHeader = errors.New("csv header must be: " + strings.Join(Columns, ","))

// Options は取込の設定です。
type Options struct {
	// ShiftJIS が true なら入力を Shift-JIS として読みます。
	ShiftJIS bool
	// Now は登録・更新日時に使う時計です (既定: time.Now)。
	Now func() time.Time
}

// RowError はスキップした行とその理由です。Line はファイル上の行番号 (1始まり) です。
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Result は取込結果です。
type Result struct {
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Skipped  []RowError `json:"skipped"`
}

// ImportProducts は CSV を読み込み、仕入先を名前で、品目をバーコードで登録・更新します。
// 全行を1つのトランザクションで処理し、DB エラーが起きた場合は全体をロールバックします。
// バーコードや数量が不正な行はスキップして Result.Skipped に記録します。
func ImportProducts(db *sqlx.DB, r io.Reader, opts Options) (result *Result, err error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	enc := units.UTF8
	if opts.ShiftJIS {
		enc = units.ShiftJIS
	}

	cr := csv.NewReader(units.NewReader(r, enc))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrBadHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	if !validHeader(header) {
		return nil, ErrBadHeader
	}

	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			log.Warn().Err(err).Msg("Rolling back product import")
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	result = &Result{Skipped: []RowError{}}
	vendorIDs := make(map[string]string)
	for {
		row, readErr := cr.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			var pe *csv.ParseError
			if !errors.As(readErr, &pe) {
				return nil, fmt.Errorf("failed to read csv: %w", readErr)
			}
			result.Skipped = append(result.Skipped, RowError{Line: pe.Line, Message: pe.Err.Error()})
			continue
		}
		if isBlank(row) {
			continue
		}
		line, _ := cr.FieldPos(0)

		vendorName, input, rowErr := parseRow(row)
		if rowErr != nil {
			result.Skipped = append(result.Skipped, RowError{Line: line, Message: rowErr.Error()})
			continue
		}

		vendorID, ok := vendorIDs[vendorName]
		if !ok {
			vendorID, err = database.UpsertVendorByNameInTx(tx, vendorName)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			vendorIDs[vendorName] = vendorID
		}
		input.VendorID = vendorID

		inserted, err := database.UpsertProductByBarcodeInTx(tx, input, now())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}

	metrics.ProductsImported.Add(float64(result.Inserted + result.Updated))
	log.Info().
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Int("skipped", len(result.Skipped)).
		Msg("Imported products")
	return result, nil
}

func validHeader(header []string) bool {
	if len(header) != len(Columns) {
		return false
	}
	for i, col := range header {
		col = strings.TrimPrefix(col, "\ufeff")
		if !strings.EqualFold(strings.TrimSpace(col), Columns[i]) {
			return false
		}
	}
	return true
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseRow は1行を検証し、仕入先名と品目入力を返します。
func parseRow(row []string) (string, model.ProductInput, error) {
	if len(row) != len(Columns) {
		return "", model.ProductInput{}, fmt.Errorf("expected %d columns, got %d", len(Columns), len(row))
	}
	vendorName := strings.TrimSpace(row[0])
	name := strings.TrimSpace(row[1])
	if vendorName == "" {
		return "", model.ProductInput{}, errors.New("vendor is required")
	}
	if name == "" {
		return "", model.ProductInput{}, errors.New("name is required")
	}

	code, err := barcode.Normalize(row[2])
	if err != nil {
		return "", model.ProductInput{}, err
	}
	qty, err := format.ParseQuantity(row[3])
	if err != nil {
		return "", model.ProductInput{}, err
	}

	return vendorName, model.ProductInput{
		Name:     name,
		Barcode:  code,
		Quantity: qty,
		Unit:     units.Normalize(row[4]),
	}, nil
}
