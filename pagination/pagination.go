// Package pagination は一覧画面のページャー表示用のラベル列を生成します。
package pagination

import "strconv"

// Ellipsis はページ番号が省略されていることを示す表示用の記号です。
const Ellipsis = "..."

// Token はページャーに並ぶ1要素です。ページ番号か省略記号のどちらかです。
// 省略記号は省略したページ数の情報を持ちません。
type Token struct {
	Page       int
	IsEllipsis bool
}

// PageToken はページ番号のトークンを返します。
func PageToken(page int) Token { return Token{Page: page} }

// EllipsisToken は省略記号のトークンを返します。
func EllipsisToken() Token { return Token{IsEllipsis: true} }

func (t Token) String() string {
	if t.IsEllipsis {
		return Ellipsis
	}
	return strconv.Itoa(t.Page)
}

// MarshalJSON はページ番号を数値、省略記号を文字列 "..." として出力します。
func (t Token) MarshalJSON() ([]byte, error) {
	if t.IsEllipsis {
		return []byte(`"` + Ellipsis + `"`), nil
	}
	return []byte(strconv.Itoa(t.Page)), nil
}

// Generate は現在ページと総ページ数から、左から右への表示順にトークンを返します。
//
// 引数の範囲チェックは行いません。currentPage が [1, totalPages] の外にある場合も
// 計算結果をそのまま返します（負のページ番号になることもあります）。
// 画面側では Clamp を通した値を渡してください。
func Generate(currentPage, totalPages int) []Token {
	// 7ページ以下なら全ページを省略なしで表示
	if totalPages <= 7 {
		tokens := make([]Token, 0, max(totalPages, 0))
		for p := 1; p <= totalPages; p++ {
			tokens = append(tokens, PageToken(p))
		}
		return tokens
	}

	// 先頭付近: 最初の3ページと最後の2ページ
	if currentPage <= 3 {
		return []Token{
			PageToken(1), PageToken(2), PageToken(3),
			EllipsisToken(),
			PageToken(totalPages - 1), PageToken(totalPages),
		}
	}

	// 末尾付近: 最初の2ページと最後の3ページ
	if currentPage >= totalPages-2 {
		return []Token{
			PageToken(1), PageToken(2),
			EllipsisToken(),
			PageToken(totalPages - 2), PageToken(totalPages - 1), PageToken(totalPages),
		}
	}

	return []Token{
		PageToken(1),
		EllipsisToken(),
		PageToken(currentPage - 1), PageToken(currentPage), PageToken(currentPage + 1),
		EllipsisToken(),
		PageToken(totalPages),
	}
}
