package pagination

import (
	"strconv"
	"strings"
)

// DefaultPerPage は1ページあたりの既定件数です。
const DefaultPerPage = 6

// TotalPages は総件数を1ページあたりの件数で割った総ページ数（切り上げ）を返します。
// perPage が0以下の場合は DefaultPerPage を使います。
func TotalPages(totalItems, perPage int) int {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if totalItems <= 0 {
		return 0
	}
	return (totalItems + perPage - 1) / perPage
}

// Clamp は要求されたページ番号を [1, totalPages] に収めます。
// totalPages が0以下（データなし）の場合は1を返します。
func Clamp(currentPage, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if currentPage < 1 {
		return 1
	}
	if currentPage > totalPages {
		return totalPages
	}
	return currentPage
}

// Offset は SQL の OFFSET 値を返します。
func Offset(page, perPage int) int {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page < 1 {
		page = 1
	}
	return (page - 1) * perPage
}

// ParsePage はクエリ文字列の page パラメータを解釈します。
// 空・数値以外・1未満はすべて1ページ目として扱います。
func ParsePage(raw string) int {
	p, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || p < 1 {
		return 1
	}
	return p
}

// PageLink はページャーのリンク1つ分の表示データです。
type PageLink struct {
	Label    string `json:"label"`
	Page     int    `json:"page,omitempty"`
	Ellipsis bool   `json:"ellipsis,omitempty"`
	Href     string `json:"href,omitempty"`
	Current  bool   `json:"current,omitempty"`
	// Position は "first" / "last" / "single" / "middle" のいずれか、または空です。
	Position string `json:"position,omitempty"`
}

// Links は Generate の結果にリンク先と現在ページの印を付けます。
// 省略記号には href を付けません。
func Links(currentPage, totalPages int, href func(page int) string) []PageLink {
	tokens := Generate(currentPage, totalPages)
	links := make([]PageLink, 0, len(tokens))
	for i, t := range tokens {
		link := PageLink{Label: t.String(), Ellipsis: t.IsEllipsis}
		if !t.IsEllipsis {
			link.Page = t.Page
			link.Current = t.Page == currentPage
			if href != nil {
				link.Href = href(t.Page)
			}
		}
		switch {
		case len(tokens) == 1:
			link.Position = "single"
		case i == 0:
			link.Position = "first"
		case i == len(tokens)-1:
			link.Position = "last"
		case t.IsEllipsis:
			link.Position = "middle"
		}
		links = append(links, link)
	}
	return links
}
