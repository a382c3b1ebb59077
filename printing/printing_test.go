package printing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	assert.True(t, o.Headless)
	assert.Equal(t, DefaultTimeout, o.Timeout)
	assert.False(t, o.Landscape)
}

func TestWithDefaults(t *testing.T) {
	assert.Equal(t, DefaultTimeout, Options{}.withDefaults().Timeout)
	assert.Equal(t, 5*time.Second, Options{Timeout: 5 * time.Second}.withDefaults().Timeout)
}

func TestPrintPage_RequiresArguments(t *testing.T) {
	ctx := context.Background()
	assert.EqualError(t, PrintPage(ctx, "", "out.pdf", DefaultOptions()), "url is required")
	assert.EqualError(t, PrintPage(ctx, "http://localhost:8080/products", "", DefaultOptions()), "output path is required")
}
