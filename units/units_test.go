package units

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
)

func TestNormalize_Builtin(t *testing.T) {
	Reset()
	assert.Equal(t, "lb", Normalize("lbs"))
	assert.Equal(t, "lb", Normalize(" LBS "))
	assert.Equal(t, "oz", Normalize("Ounce"))
	assert.Equal(t, "mL", Normalize("ml"))
	assert.Equal(t, "ea", Normalize("pcs"))
	assert.Equal(t, "bundle", Normalize(" bundle "))
	assert.True(t, Known("kg"))
	assert.False(t, Known("bundle"))
}

func TestLoad_UTF8(t *testing.T) {
	t.Cleanup(Reset)

	n, err := Load(strings.NewReader("# comment,x\nbdl,bundle\nbundles,bundle\n,skip\nshort\n"), UTF8)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "bundle", Normalize("BDL"))
	assert.Equal(t, "bundle", Normalize("bundle"))
	assert.Equal(t, "lb", Normalize("lbs"), "builtin aliases are kept")
	assert.Contains(t, Canonical(), "bundle")
}

func TestLoadFile_ShiftJIS(t *testing.T) {
	t.Cleanup(Reset)

	sjis, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte("袋,bag\nケース,case\n"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "units.csv")
	require.NoError(t, os.WriteFile(path, sjis, 0o644))

	n, err := LoadFile(path, ShiftJIS)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "bag", Normalize("袋"))
	assert.Equal(t, "case", Normalize("ケース"))
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.csv"), UTF8)
	assert.Error(t, err)
}

func TestParseEncoding(t *testing.T) {
	for in, want := range map[string]Encoding{"": UTF8, "UTF-8": UTF8, "sjis": ShiftJIS, "Shift_JIS": ShiftJIS, "cp932": ShiftJIS} {
		got, err := ParseEncoding(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseEncoding("latin1")
	assert.Error(t, err)
}
