// Package format は数量・日時などの画面表示用の整形処理をまとめたものです。
package format

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale はロケール未指定時に使う表示ロケールです。
const DefaultLocale = "en-US"

var supported = []language.Tag{
	language.AmericanEnglish, // 先頭がフォールバック
	language.Japanese,
}

var matcher = language.NewMatcher(supported)

// dateLayouts は supported と同じ順序で、長い日付＋短い時刻の書式を持ちます。
var dateLayouts = []string{
	"January 2, 2006 at 3:04 PM",
	"2006年1月2日 15:04",
}

// resolve は任意のロケール文字列を supported の添字に解決します。
func resolve(locale string) (language.Tag, int) {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return supported[0], 0
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return supported[0], 0
	}
	return supported[idx], idx
}

// Quantity は 1/100 単位の整数を、ロケールの桁区切り付き・小数2桁までの文字列にします。
// 例: 123456 → "1,234.56" (en-US)、1250 → "12.5"、100 → "1"
// float64 を経由しないので 2^53 を超える値でも桁落ちしません。
func Quantity(hundredths int64, locale string) string {
	tag, _ := resolve(locale)
	p := message.NewPrinter(tag)
	sign, whole, frac := splitHundredths(hundredths)
	// 対応ロケールの小数点はいずれも "."
	return sign + p.Sprintf("%v", number.Decimal(whole)) + frac
}

// QuantityInput は <input type="number" step="0.01"> にそのまま入れられる形式を返します。
func QuantityInput(hundredths int64) string {
	sign, whole, frac := splitHundredths(hundredths)
	return sign + strconv.FormatUint(whole, 10) + frac
}

// splitHundredths は符号・整数部・小数部 (".5" のように末尾の0を除いたもの、なければ空) に分けます。
func splitHundredths(hundredths int64) (string, uint64, string) {
	sign := ""
	abs := uint64(hundredths)
	if hundredths < 0 {
		sign = "-"
		abs = -abs
	}
	whole, cents := abs/100, abs%100
	if cents == 0 {
		return sign, whole, ""
	}
	frac := strings.TrimRight(fmt.Sprintf("%02d", cents), "0")
	return sign, whole, "." + frac
}

// DateToLocal は日付を長い形式、時刻を短い形式で表示します。ゼロ値は空文字です。
func DateToLocal(t time.Time, locale string) string {
	if t.IsZero() {
		return ""
	}
	_, idx := resolve(locale)
	return t.Format(dateLayouts[idx])
}

// DatabaseErrorMsg は画面に出すデータベースエラーの文言です。
func DatabaseErrorMsg(err string) string {
	return "Database Error: " + err
}

// ErrInvalidQuantity は数量が 0 以上・小数2桁までの数値でない場合のエラーです。
var ErrInvalidQuantity = errors.New("quantity must be a non-negative number with at most 2 decimal places")

// ParseQuantity は "12.5" のような入力を 1/100 単位の整数 (1250) に変換します。
// 桁区切りのカンマは取り除きます。
func ParseQuantity(raw string) (int64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0, ErrInvalidQuantity
	}
	whole, frac, _ := strings.Cut(s, ".")
	if (whole == "" && frac == "") || len(frac) > 2 {
		return 0, ErrInvalidQuantity
	}
	if whole == "" {
		whole = "0"
	}
	for _, part := range []string{whole, frac} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return 0, ErrInvalidQuantity
			}
		}
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w > math.MaxInt64/100-1 {
		return 0, ErrInvalidQuantity
	}
	for len(frac) < 2 {
		frac += "0"
	}
	f, _ := strconv.ParseInt(frac, 10, 64)
	return w*100 + f, nil
}
