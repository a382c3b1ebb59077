package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"stockroom/model"
)

const vendorColumns = `id, name, email, image_url`

func GetAllVendors(dbtx DBTX) ([]model.Vendor, error) {
	vendors := []model.Vendor{}
	err := dbtx.Select(&vendors, `SELECT `+vendorColumns+` FROM vendors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all vendors: %w", err)
	}
	return vendors, nil
}

// GetVendorFields はフォームの仕入先選択肢を返します。
func GetVendorFields(dbtx DBTX) ([]model.VendorField, error) {
	fields := []model.VendorField{}
	err := dbtx.Select(&fields, `SELECT id, name FROM vendors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vendor fields: %w", err)
	}
	return fields, nil
}

func GetVendorByID(dbtx DBTX, id string) (*model.Vendor, error) {
	var v model.Vendor
	err := dbtx.Get(&v, dbtx.Rebind(`SELECT `+vendorColumns+` FROM vendors WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get vendor %s: %w", id, err)
	}
	return &v, nil
}

// VendorExists はフォーム検証用に仕入先の存在を確認します。
func VendorExists(dbtx DBTX, id string) (bool, error) {
	var n int
	if err := dbtx.Get(&n, dbtx.Rebind(`SELECT COUNT(*) FROM vendors WHERE id = ?`), id); err != nil {
		return false, fmt.Errorf("failed to check vendor %s: %w", id, err)
	}
	return n > 0, nil
}

// GetVendorMap は仕入先IDと仕入先名のマップを返します。
func GetVendorMap(dbtx DBTX) (map[string]string, error) {
	vendors, err := GetAllVendors(dbtx)
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor list for map: %w", err)
	}
	m := make(map[string]string, len(vendors))
	for _, v := range vendors {
		m[v.ID] = v.Name
	}
	return m, nil
}

// CreateVendor は仕入先を登録します。ID が空なら採番します。
func CreateVendor(dbtx DBTX, v model.Vendor) (*model.Vendor, error) {
	v.Name = strings.TrimSpace(v.Name)
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	const q = `INSERT INTO vendors (id, name, email, image_url) VALUES (?, ?, ?, ?)`
	if _, err := dbtx.Exec(dbtx.Rebind(q), v.ID, v.Name, v.Email, v.ImageURL); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("vendor %q: %w", v.Name, ErrDuplicate)
		}
		return nil, fmt.Errorf("CreateVendor failed: %w", err)
	}
	return &v, nil
}

// UpsertVendorByNameInTx は仕入先名で検索し、なければ新規登録して ID を返します。
func UpsertVendorByNameInTx(tx *sqlx.Tx, name string) (string, error) {
	name = strings.TrimSpace(name)
	var id string
	err := tx.Get(&id, tx.Rebind(`SELECT id FROM vendors WHERE name = ?`), name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("UpsertVendorByNameInTx (Name: %s) lookup failed: %w", name, err)
	}
	v, err := CreateVendor(tx, model.Vendor{Name: name})
	if err != nil {
		return "", fmt.Errorf("UpsertVendorByNameInTx (Name: %s) failed: %w", name, err)
	}
	return v.ID, nil
}

// DeleteVendor は仕入先を削除します。品目が紐付いている場合は ErrVendorInUse です。
func DeleteVendor(dbtx DBTX, id string) error {
	var n int
	if err := dbtx.Get(&n, dbtx.Rebind(`SELECT COUNT(*) FROM products WHERE vendor_id = ?`), id); err != nil {
		return fmt.Errorf("failed to count products of vendor %s: %w", id, err)
	}
	if n > 0 {
		return fmt.Errorf("vendor %s has %d products: %w", id, n, ErrVendorInUse)
	}

	res, err := dbtx.Exec(dbtx.Rebind(`DELETE FROM vendors WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete vendor with id %s: %w", id, err)
	}
	return affectedOne(res)
}

// GetVendorProductCounts は仕入先ごとの品目数を返します。品目のない仕入先は含みません。
func GetVendorProductCounts(dbtx DBTX) (map[string]int, error) {
	var rows []struct {
		VendorID string `db:"vendor_id"`
		Count    int    `db:"cnt"`
	}
	err := dbtx.Select(&rows, `SELECT vendor_id, COUNT(*) AS cnt FROM products GROUP BY vendor_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to count products per vendor: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.VendorID] = r.Count
	}
	return counts, nil
}
