package barcode

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmpty はバーコードが未入力の場合のエラーです。
	ErrEmpty = errors.New("barcode is empty")
	// ErrInvalidBarcode は形式・桁数・チェックデジットのいずれかが不正な場合のエラーです。
	ErrInvalidBarcode = errors.New("invalid barcode")
)

// Result はバーコードの解析結果を格納します
type Result struct {
	Gtin14     string // (01) GTIN (14桁)
	ExpiryDate string // (17) 有効期限 (YYYYMM に正規化)
	LotNumber  string // (10) ロット番号
}

// lotMaxLength は可変長AI(10)ロット番号の最大長です。
const lotMaxLength = 20

// Parse はスキャンされた文字列を自動判別して解析します。
//
//   - 15桁以上: AI(01)で始まる GS1 エレメント文字列
//   - 14桁: GTIN-14
//   - 13桁以下: JAN/EAN/UPC。先頭を0で埋めて14桁にする
func Parse(code string) (*Result, error) {
	code = strings.TrimSpace(code)
	length := len(code)

	if length == 0 {
		return nil, ErrEmpty
	}

	if length >= 15 {
		if strings.HasPrefix(code, "01") {
			return parseAIString(code)
		}
		return nil, fmt.Errorf("%w: %d characters but does not start with AI (01)", ErrInvalidBarcode, length)
	}

	if !isDigits(code) {
		return nil, fmt.Errorf("%w: non-digit characters in %q", ErrInvalidBarcode, code)
	}

	return &Result{Gtin14: fmt.Sprintf("%014s", code)}, nil
}

// parseAIString は 15桁以上のAI付き文字列を解析する内部関数です。
func parseAIString(code string) (*Result, error) {
	result := &Result{}
	i := 0
	length := len(code)

	for i < length {
		switch {
		case strings.HasPrefix(code[i:], "01"):
			// AI(2) + 14桁固定
			if i+16 > length {
				return nil, fmt.Errorf("%w: AI (01) data is truncated", ErrInvalidBarcode)
			}
			result.Gtin14 = code[i+2 : i+16]
			i += 16

		case strings.HasPrefix(code[i:], "17"):
			// AI(2) + YYMMDD
			if i+8 > length {
				return nil, fmt.Errorf("%w: AI (17) data is truncated", ErrInvalidBarcode)
			}
			yymmdd := code[i+2 : i+8]
			result.ExpiryDate = "20" + yymmdd[0:2] + yymmdd[2:4]
			i += 8

		case strings.HasPrefix(code[i:], "10"):
			dataStart := i + 2
			dataEnd := dataStart
			for dataEnd < length && dataEnd-dataStart < lotMaxLength {
				remaining := code[dataEnd:]
				// 次のAIが完全な形で続く場合のみそこで区切る
				if strings.HasPrefix(remaining, "01") && len(remaining) >= 16 {
					break
				}
				if strings.HasPrefix(remaining, "17") && len(remaining) >= 8 {
					break
				}
				dataEnd++
			}
			result.LotNumber = code[dataStart:dataEnd]
			i = dataEnd

		default:
			i++
		}
	}

	if result.Gtin14 == "" {
		return nil, fmt.Errorf("%w: no AI (01) GTIN found", ErrInvalidBarcode)
	}
	return result, nil
}

// ValidCheckDigit は GS1 の mod10 チェックデジットを検証します。
func ValidCheckDigit(gtin string) bool {
	if len(gtin) < 2 || !isDigits(gtin) {
		return false
	}
	sum := 0
	// チェックデジットの左隣から重み 3,1,3,1... で加算
	for i, pos := len(gtin)-2, 0; i >= 0; i, pos = i-1, pos+1 {
		d := int(gtin[i] - '0')
		if pos%2 == 0 {
			d *= 3
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return check == int(gtin[len(gtin)-1]-'0')
}

// Normalize は保存用のバーコードを返します。
// 8/12/13/14桁の数字は入力のまま、GS1 エレメント文字列は GTIN-14 を返します。
// いずれもチェックデジットを検証します。
func Normalize(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrEmpty
	}

	if len(code) >= 15 {
		res, err := Parse(code)
		if err != nil {
			return "", err
		}
		if !ValidCheckDigit(res.Gtin14) {
			return "", fmt.Errorf("%w: check digit mismatch", ErrInvalidBarcode)
		}
		return res.Gtin14, nil
	}

	if !isDigits(code) {
		return "", fmt.Errorf("%w: non-digit characters in %q", ErrInvalidBarcode, code)
	}
	switch len(code) {
	case 8, 12, 13, 14:
	default:
		return "", fmt.Errorf("%w: unsupported length %d", ErrInvalidBarcode, len(code))
	}
	if !ValidCheckDigit(code) {
		return "", fmt.Errorf("%w: check digit mismatch", ErrInvalidBarcode)
	}
	return code, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// Candidates は正規化済みのバーコードについて、保存されている可能性のある表記をすべて返します。
// GTIN-14 の先頭の0を落とした JAN/UPC/EAN-8 と、短いコードを14桁に埋めた表記を含みます。
func Candidates(code string) []string {
	if code == "" {
		return nil
	}
	gtin := fmt.Sprintf("%014s", code)
	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	add(code)
	add(gtin)
	for _, n := range []int{13, 12, 8} {
		if strings.Count(gtin[:14-n], "0") == 14-n {
			add(gtin[14-n:])
		}
	}
	return out
}
