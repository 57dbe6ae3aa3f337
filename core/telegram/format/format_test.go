package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "0 Ks", FormatCurrency(0))
	assert.Equal(t, "200 Ks", FormatCurrency(200))
	assert.Equal(t, "12,500 Ks", FormatCurrency(12500))
	assert.Equal(t, "1,234,567 Ks", FormatCurrency(1234567))
	assert.Equal(t, "99.50 Ks", FormatCurrency(99.5))
	assert.Equal(t, "-1,000 Ks", FormatCurrency(-1000))
}

func TestEscapeMarkdown(t *testing.T) {
	v1, err := EscapeMarkdown("a_b*c", MarkdownV1)
	assert.NoError(t, err)
	assert.Equal(t, `a\_b\*c`, v1)

	v2, err := EscapeMarkdown("a.b!c", MarkdownV2)
	assert.NoError(t, err)
	assert.Equal(t, `a\.b\!c`, v2)

	_, err = EscapeMarkdown("x", 3)
	assert.Error(t, err)
}
