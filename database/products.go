package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"stockroom/barcode"
	"stockroom/model"
	"stockroom/pagination"
)

const productSelect = `
	SELECT p.id, p.vendor_id, v.name AS vendor_name, p.name, p.barcode, p.image_url,
		p.quantity, p.unit, p.created_at, p.updated_at
	FROM products p
	JOIN vendors v ON v.id = p.vendor_id`

// likeEscaper は検索語中の LIKE のワイルドカードを文字として扱うためのものです。
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// searchClause は一覧検索の WHERE 句と引数を返します。
// 品目名・バーコード・仕入先名・単位の部分一致（大文字小文字を区別しない）です。
func searchClause(query string) (string, []interface{}) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return "", nil
	}
	like := "%" + likeEscaper.Replace(query) + "%"
	where := ` WHERE LOWER(p.name) LIKE ? ESCAPE '\' OR p.barcode LIKE ? ESCAPE '\'` +
		` OR LOWER(v.name) LIKE ? ESCAPE '\' OR LOWER(p.unit) LIKE ? ESCAPE '\'`
	return where, []interface{}{like, like, like, like}
}

// FetchFilteredProducts は検索条件に合う品目を1ページ分返します。
func FetchFilteredProducts(dbtx DBTX, filter model.ProductFilter) ([]model.Product, error) {
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = pagination.DefaultPerPage
	}
	where, args := searchClause(filter.Query)
	q := productSelect + where + ` ORDER BY p.name, p.id LIMIT ? OFFSET ?`
	args = append(args, perPage, pagination.Offset(filter.Page, perPage))

	products := []model.Product{}
	if err := dbtx.Select(&products, dbtx.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return products, nil
}

// CountProducts は検索条件に合う品目の件数を返します。
func CountProducts(dbtx DBTX, query string) (int, error) {
	where, args := searchClause(query)
	q := `SELECT COUNT(*) FROM products p JOIN vendors v ON v.id = p.vendor_id` + where
	var n int
	if err := dbtx.Get(&n, dbtx.Rebind(q), args...); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// FetchProductsPages は検索条件に合う品目の総ページ数を返します。
func FetchProductsPages(dbtx DBTX, query string, perPage int) (int, error) {
	n, err := CountProducts(dbtx, query)
	if err != nil {
		return 0, err
	}
	return pagination.TotalPages(n, perPage), nil
}

func GetProductByID(dbtx DBTX, id string) (*model.Product, error) {
	var p model.Product
	if err := dbtx.Get(&p, dbtx.Rebind(productSelect+` WHERE p.id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return &p, nil
}

func GetProductsByVendor(dbtx DBTX, vendorID string) ([]model.Product, error) {
	products := []model.Product{}
	q := productSelect + ` WHERE p.vendor_id = ? ORDER BY p.name, p.id`
	if err := dbtx.Select(&products, dbtx.Rebind(q), vendorID); err != nil {
		return nil, fmt.Errorf("failed to get products of vendor %s: %w", vendorID, err)
	}
	return products, nil
}

func GetAllProducts(dbtx DBTX) ([]model.Product, error) {
	products := []model.Product{}
	if err := dbtx.Select(&products, productSelect+` ORDER BY v.name, p.name, p.id`); err != nil {
		return nil, fmt.Errorf("failed to select all products: %w", err)
	}
	return products, nil
}

// findProductIDByBarcode は code と同じ GTIN を表すバーコードの品目 ID を返します。
// JAN-13 と先頭0埋めの GTIN-14 は同じ品目です。excludeID の品目は対象外です。
func findProductIDByBarcode(dbtx DBTX, code, excludeID string) (string, error) {
	candidates := barcode.Candidates(code)
	if len(candidates) == 0 {
		return "", ErrNotFound
	}
	q, args, err := sqlx.In(`SELECT id FROM products WHERE barcode IN (?) AND id <> ? ORDER BY created_at, id LIMIT 1`, candidates, excludeID)
	if err != nil {
		return "", err
	}
	var id string
	if err := dbtx.Get(&id, dbtx.Rebind(q), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("barcode lookup (%s) failed: %w", code, err)
	}
	return id, nil
}

// ensureBarcodeFree は同じ GTIN の別品目があれば ErrDuplicate を返します。
func ensureBarcodeFree(dbtx DBTX, code, excludeID string) error {
	_, err := findProductIDByBarcode(dbtx, code, excludeID)
	switch {
	case err == nil:
		return fmt.Errorf("barcode %s: %w", code, ErrDuplicate)
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return err
	}
}

// CreateProduct は品目を新規登録します。
func CreateProduct(dbtx DBTX, input model.ProductInput, now time.Time) (*model.Product, error) {
	if err := ensureBarcodeFree(dbtx, input.Barcode, ""); err != nil {
		return nil, err
	}
	p := model.Product{
		ID:        uuid.NewString(),
		VendorID:  input.VendorID,
		Name:      input.Name,
		Barcode:   input.Barcode,
		ImageURL:  input.ImageURL,
		Quantity:  input.Quantity,
		Unit:      input.Unit,
		CreatedAt: now,
	}
	const q = `
		INSERT INTO products (id, vendor_id, name, barcode, image_url, quantity, unit, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := dbtx.Exec(dbtx.Rebind(q), p.ID, p.VendorID, p.Name, p.Barcode, p.ImageURL, p.Quantity, p.Unit, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("barcode %s: %w", p.Barcode, ErrDuplicate)
		}
		return nil, fmt.Errorf("CreateProduct failed: %w", err)
	}
	return &p, nil
}

// UpdateProduct はフォームで編集可能な項目を更新します。画像URLと登録日時は変更しません。
func UpdateProduct(dbtx DBTX, id string, input model.ProductInput, now time.Time) error {
	if err := ensureBarcodeFree(dbtx, input.Barcode, id); err != nil {
		return err
	}
	const q = `
		UPDATE products
		SET vendor_id = ?, name = ?, barcode = ?, quantity = ?, unit = ?, updated_at = ?
		WHERE id = ?`
	res, err := dbtx.Exec(dbtx.Rebind(q), input.VendorID, input.Name, input.Barcode, input.Quantity, input.Unit, now, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("barcode %s: %w", input.Barcode, ErrDuplicate)
		}
		return fmt.Errorf("UpdateProduct (ID: %s) failed: %w", id, err)
	}
	return affectedOne(res)
}

func DeleteProduct(dbtx DBTX, id string) error {
	res, err := dbtx.Exec(dbtx.Rebind(`DELETE FROM products WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete product with id %s: %w", id, err)
	}
	return affectedOne(res)
}

// UpsertProductByBarcodeInTx はバーコードで既存品目を探し、あれば更新、なければ登録します。
// JAN-13 と GTIN-14 のように表記が違っても同じ GTIN なら更新になります。
// 登録した場合は true を返します。
func UpsertProductByBarcodeInTx(tx *sqlx.Tx, input model.ProductInput, now time.Time) (bool, error) {
	id, err := findProductIDByBarcode(tx, input.Barcode, "")
	switch {
	case err == nil:
		if err := UpdateProduct(tx, id, input, now); err != nil {
			return false, err
		}
		return false, nil
	case errors.Is(err, ErrNotFound):
		if _, err := CreateProduct(tx, input, now); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, fmt.Errorf("UpsertProductByBarcodeInTx (Barcode: %s) lookup failed: %w", input.Barcode, err)
	}
}

// GetProductByBarcode はいずれかの候補バーコードに一致する品目を返します。
func GetProductByBarcode(dbtx DBTX, candidates []string) (*model.Product, error) {
	if len(candidates) == 0 {
		return nil, ErrNotFound
	}
	q, args, err := sqlx.In(productSelect+` WHERE p.barcode IN (?) ORDER BY p.created_at, p.id LIMIT 1`, candidates)
	if err != nil {
		return nil, err
	}
	var p model.Product
	if err := dbtx.Get(&p, dbtx.Rebind(q), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product by barcode: %w", err)
	}
	return &p, nil
}
