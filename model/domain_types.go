package model

import (
	"database/sql"
	"time"
)

type Vendor struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Email    string `db:"email" json:"email"`
	ImageURL string `db:"image_url" json:"imageUrl"`
}

// VendorField は仕入先選択ボックス用の最小限の情報です。
type VendorField struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Product は在庫品目です。Quantity は 1/100 単位の整数で保持します（12.5 → 1250）。
type Product struct {
	ID         string       `db:"id" json:"id"`
	VendorID   string       `db:"vendor_id" json:"vendorId"`
	VendorName string       `db:"vendor_name" json:"vendorName"`
	Name       string       `db:"name" json:"name"`
	Barcode    string       `db:"barcode" json:"barcode"`
	ImageURL   string       `db:"image_url" json:"imageUrl"`
	Quantity   int64        `db:"quantity" json:"quantity"`
	Unit       string       `db:"unit" json:"unit"`
	CreatedAt  time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt  sql.NullTime `db:"updated_at" json:"-"`
}

// ProductInput はフォームから受け取った値を検証・正規化した後の内容です。
type ProductInput struct {
	VendorID string
	Name     string
	Barcode  string
	ImageURL string
	Quantity int64
	Unit     string
}

type ProductFilter struct {
	Query   string
	Page    int
	PerPage int
}
