package units

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// builtinAliases は表記ゆれ（小文字化済み）から正規の単位への対応表です。
var builtinAliases = map[string]string{
	"lb": "lb", "lbs": "lb", "pound": "lb", "pounds": "lb",
	"oz": "oz", "ounce": "oz", "ounces": "oz",
	"kg": "kg", "kgs": "kg", "kilogram": "kg", "kilograms": "kg",
	"g": "g", "gram": "g", "grams": "g",
	"l": "L", "liter": "L", "liters": "L", "litre": "L", "litres": "L",
	"ml": "mL", "milliliter": "mL", "milliliters": "mL",
	"gal": "gal", "gallon": "gal", "gallons": "gal",
	"ea": "ea", "each": "ea", "pc": "ea", "pcs": "ea", "piece": "ea", "pieces": "ea", "unit": "ea", "units": "ea",
	"case": "case", "cases": "case", "cs": "case",
	"box": "box", "boxes": "box", "bx": "box",
	"個": "ea", "箱": "box", "本": "ea",
}

var (
	mu         sync.RWMutex
	aliasMap   = copyMap(builtinAliases)
	canonicals = collectCanonicals(aliasMap)
)

func copyMap(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func collectCanonicals(m map[string]string) map[string]bool {
	c := make(map[string]bool)
	for _, v := range m {
		c[v] = true
	}
	return c
}

// Encoding は単位定義ファイルの文字コードです。
type Encoding string

const (
	UTF8     Encoding = "utf-8"
	ShiftJIS Encoding = "shift_jis"
)

// ParseEncoding は設定値から文字コードを判定します。空は UTF-8 です。
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "utf-8", "utf8":
		return UTF8, nil
	case "shift_jis", "shift-jis", "sjis", "cp932":
		return ShiftJIS, nil
	}
	return "", fmt.Errorf("unknown encoding %q", s)
}

// NewReader は enc に応じて r を UTF-8 に変換する Reader を返します。
func NewReader(r io.Reader, enc Encoding) io.Reader {
	if enc == ShiftJIS {
		return transform.NewReader(r, japanese.ShiftJIS.NewDecoder())
	}
	return r
}

// LoadFile は "表記,単位" 形式の CSV を読み込み、組み込みの対応表に上書き・追加します。
// 読み込んだ件数を返します。
func LoadFile(path string, enc Encoding) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("LoadFile: open %s: %w", path, err)
	}
	defer file.Close()

	n, err := Load(file, enc)
	if err != nil {
		return 0, fmt.Errorf("LoadFile: %s: %w", path, err)
	}
	return n, nil
}

// Load は r から単位の対応表を読み込みます。
func Load(r io.Reader, enc Encoding) (int, error) {
	reader := csv.NewReader(NewReader(r, enc))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	m := copyMap(builtinAliases)
	count := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read units: %w", err)
		}
		if len(record) < 2 {
			continue
		}
		alias := strings.ToLower(strings.TrimSpace(record[0]))
		unit := strings.TrimSpace(record[1])
		if alias == "" || unit == "" || strings.HasPrefix(alias, "#") {
			continue
		}
		m[alias] = unit
		// 正規の単位自身も引けるようにする
		if _, ok := m[strings.ToLower(unit)]; !ok {
			m[strings.ToLower(unit)] = unit
		}
		count++
	}

	mu.Lock()
	aliasMap = m
	canonicals = collectCanonicals(m)
	mu.Unlock()
	return count, nil
}

// Reset は組み込みの対応表に戻します（テスト用）。
func Reset() {
	mu.Lock()
	aliasMap = copyMap(builtinAliases)
	canonicals = collectCanonicals(aliasMap)
	mu.Unlock()
}

// Normalize は単位の表記を正規化します。未知の単位は前後の空白を除いてそのまま返します。
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	mu.RLock()
	defer mu.RUnlock()
	if unit, ok := aliasMap[strings.ToLower(trimmed)]; ok {
		return unit
	}
	return trimmed
}

// Known は対応表に存在する表記かどうかを返します。
func Known(raw string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := aliasMap[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// Canonical は正規の単位一覧をソートして返します（フォームの datalist 用）。
func Canonical() []string {
	mu.RLock()
	defer mu.RUnlock()
	list := make([]string, 0, len(canonicals))
	for u := range canonicals {
		list = append(list, u)
	}
	sort.Strings(list)
	return list
}
