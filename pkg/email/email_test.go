package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResendSenderValidation(t *testing.T) {
	_, err := NewResendSender("", "alerts@menuqr.test", []string{"ops@menuqr.test"}, "")
	assert.Error(t, err)

	_, err = NewResendSender("re_test", "alerts@menuqr.test", nil, "")
	assert.Error(t, err)

	s, err := NewResendSender("re_test", "alerts@menuqr.test", []string{"ops@menuqr.test"}, "")
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestRenderAlertHTML(t *testing.T) {
	out := renderAlertHTML(3, 7, 12, `https://admin.menuqr.test/alerts?x="y"`)

	assert.Contains(t, out, "Critical: <strong>3</strong>")
	assert.Contains(t, out, "Unresolved: 7")
	assert.Contains(t, out, "Last 24h: 12")
	assert.Contains(t, out, "&#34;y&#34;")
	assert.NotContains(t, out, `"y"`)

	assert.NotContains(t, renderAlertHTML(1, 1, 1, ""), "<a href")
}
