// Package report は仕入先別の在庫レポート (xlsx) と品目一覧の CSV を出力します。
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"stockroom/format"
	"stockroom/model"
)

// maxSheetName は Excel のシート名の最大文字数です。
const maxSheetName = 31

var columns = []string{"Product Name", "Barcode", "Quantity", "Unit"}

// SheetName は仕入先名からシート名を作ります。
// Excel で使えない文字は置き換え、31文字を超える場合は仕入先名側を切り詰めます。
func SheetName(vendorName string) string {
	const suffix = " Inventory Report"
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(vendorName))
	name = strings.Trim(name, "'")

	limit := maxSheetName - utf8.RuneCountInString(suffix)
	if utf8.RuneCountInString(name) > limit {
		name = string([]rune(name)[:limit])
	}
	if name == "" {
		return strings.TrimSpace(suffix)
	}
	return name + suffix
}

// WriteVendorWorkbook は仕入先の品目一覧を1シートの xlsx として w に書き出します。
func WriteVendorWorkbook(w io.Writer, vendor model.Vendor, products []model.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(vendor.Name)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("set sheet name %q: %w", sheet, err)
	}

	if err := f.SetSheetRow(sheet, "A1", &columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "D1", headerStyle); err != nil {
		return err
	}
	qtyFormat := "#,##0.00"
	qtyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &qtyFormat})
	if err != nil {
		return err
	}

	for i, p := range products {
		row := i + 2
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := []interface{}{p.Name, p.Barcode, float64(p.Quantity) / 100, p.Unit}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		// バーコードは先頭0を保つため文字列で書く
		barcodeCell, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.SetCellStr(sheet, barcodeCell, p.Barcode); err != nil {
			return err
		}
	}
	if len(products) > 0 {
		end, _ := excelize.CoordinatesToCellName(3, len(products)+1)
		if err := f.SetCellStyle(sheet, "C2", end, qtyStyle); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", "D", 16); err != nil {
		return err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteProductsCSV は品目一覧を UTF-8 BOM 付き・CRLF 改行の CSV で書き出します。
func WriteProductsCSV(w io.Writer, products []model.Product, locale string) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	header := []string{"Vendor", "Product Name", "Barcode", "Quantity", "Unit", "Created At", "Updated At"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, p := range products {
		updated := ""
		if p.UpdatedAt.Valid {
			updated = format.DateToLocal(p.UpdatedAt.Time, locale)
		}
		record := []string{
			p.VendorName,
			p.Name,
			p.Barcode,
			format.QuantityInput(p.Quantity),
			p.Unit,
			format.DateToLocal(p.CreatedAt, locale),
			updated,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Filename はダウンロード用のファイル名を返します (例: Acme_Foods_inventory_20240305.xlsx)。
func Filename(vendorName, ext string, now time.Time) string {
	base := strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case strings.ContainsRune(`\/:*?"<>|`, r):
			return -1
		}
		return r
	}, strings.TrimSpace(vendorName))
	if base == "" {
		base = "all"
	}
	return fmt.Sprintf("%s_inventory_%s.%s", base, now.Format("20060102"), ext)
}
