package compass

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractIdentifiers(t *testing.T) {
	html := `<html><head><script>
	window.Compass = { organisationUserId: 67890, schoolConfigKey: 'k-abc123' };
	</script></head></html>`

	ids := extractIdentifiers(html)
	assert.Equal(t, 67890, ids.UserID)
	assert.Equal(t, "k-abc123", ids.ConfigKey)
	assert.True(t, ids.Complete())
}

func TestExtractIdentifiersAssignmentSyntax(t *testing.T) {
	html := `<script>Compass.organisationUserId = 42; var schoolConfigKey = "zzz";</script>`

	ids := extractIdentifiers(html)
	assert.Equal(t, 42, ids.UserID)
	assert.Equal(t, "zzz", ids.ConfigKey)
}

func TestExtractIdentifiersMissing(t *testing.T) {
	ids := extractIdentifiers(`<html><body>Sign in</body></html>`)
	assert.Zero(t, ids.UserID)
	assert.Empty(t, ids.ConfigKey)
	assert.False(t, ids.Complete())
}

func TestExtractFormFields(t *testing.T) {
	html := `
	<form>
		<input name="__VIEWSTATE" value="test_viewstate" />
		<input name="__VIEWSTATEGENERATOR" value="test_generator" />
		<input name="__EVENTVALIDATION" value="test_validation" />
		<input name="username" value="" />
		<input name="password" value="" />
	</form>`

	fields := extractFormFields(html)
	assert.Equal(t, "test_viewstate", fields.Get("__VIEWSTATE"))
	assert.Equal(t, "test_generator", fields.Get("__VIEWSTATEGENERATOR"))
	assert.Equal(t, "test_validation", fields.Get("__EVENTVALIDATION"))
	assert.True(t, fields.Has("username"))
	assert.True(t, fields.Has("password"))
}

func TestExtractFormFieldsNoForm(t *testing.T) {
	fields := extractFormFields(`<div>No form here</div>`)
	assert.Empty(t, fields)
}

func TestExtractFormFieldsCheckbox(t *testing.T) {
	html := `
	<form>
		<input type="checkbox" name="rememberMe" value="on" />
		<input type="text" name="username" value="test" />
	</form>`

	fields := extractFormFields(html)
	assert.Equal(t, "on", fields.Get("rememberMe"))
	assert.Equal(t, "test", fields.Get("username"))
}
