package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + filepath.ToSlash(schemaPath))
	require.NoError(t, err)
	return schema
}

func validateBody(t *testing.T, schema *jsonschema.Schema, resp *http.Response) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}

func TestWaqfPerformanceContract(t *testing.T) {
	schema := compileSchema(t, "waqf_performance.schema.json")
	f := newWaqfFixture("owner")

	resp, err := f.app.Test(jsonRequest(t, http.MethodGet, "/api/v1/waqfs/w1/performance", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	validateBody(t, schema, resp)
}

func TestAdminContract(t *testing.T) {
	schema := compileSchema(t, "admin.schema.json")
	app := newAdminApp(newMockAdminRegistry())

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/admin/admins/root", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	validateBody(t, schema, resp)
}
