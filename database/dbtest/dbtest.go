// Package dbtest はテスト用の SQLite データベースを用意します。
package dbtest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"stockroom/database"
	"stockroom/model"
)

// Now はテストデータの登録日時です。
var Now = time.Date(2024, time.March, 5, 14, 7, 0, 0, time.UTC)

// New は t.TempDir() 上にスキーマ適用済みの SQLite データベースを作成します。
func New(t testing.TB) *sqlx.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stockroom_test.db")
	db, err := database.Open("sqlite3", path+"?_busy_timeout=5000")
	require.NoError(t, err)
	require.NoError(t, database.ApplySchema(db))
	t.Cleanup(func() { db.Close() })
	return db
}

// SeedVendor は仕入先を1件登録します。
func SeedVendor(t testing.TB, db *sqlx.DB, name string) model.Vendor {
	t.Helper()
	v, err := database.CreateVendor(db, model.Vendor{Name: name, Email: name + "@example.com"})
	require.NoError(t, err)
	return *v
}

// SeedProduct は品目を1件登録します。quantity は 1/100 単位です。
func SeedProduct(t testing.TB, db *sqlx.DB, vendorID, name, barcode string, quantity int64, unit string) model.Product {
	t.Helper()
	p, err := database.CreateProduct(db, model.ProductInput{
		VendorID: vendorID,
		Name:     name,
		Barcode:  barcode,
		Quantity: quantity,
		Unit:     unit,
	}, Now)
	require.NoError(t, err)
	return *p
}
