package utils_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/waqf-api/internal/utils"
)

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Meta    map[string]int    `json:"meta"`
	Details map[string]string `json:"details"`
}

func TestOKCarriesPagingMeta(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		waqfs := []map[string]string{{"id": "w-1", "status": "active"}}
		return utils.OK(c, waqfs, "", map[string]int{"page": 2, "page_size": 1, "total": 3})
	})

	resp, body := perform(t, app)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, body.Success)
	require.Equal(t, "success", body.Message)
	require.Equal(t, 3, body.Meta["total"])
	require.JSONEq(t, `[{"id":"w-1","status":"active"}]`, string(body.Data))
}

func TestSendSuccessWithStatusDefaults(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return utils.SendSuccessWithStatus(c, 0, "", nil)
	})

	resp, body := perform(t, app)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, body.Success)
	require.Equal(t, "success", body.Message)
	require.Empty(t, body.Data)
	require.Nil(t, body.Meta)
}

func TestSendSuccessWithCreatedStatus(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "donation recorded", fiber.Map{"amount": 250})
	})

	resp, body := perform(t, app)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "donation recorded", body.Message)
	require.JSONEq(t, `{"amount":250}`, string(body.Data))
}

func TestFailCarriesValidationDetails(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", map[string]string{
			"WaqfCreateRequest.Donor.Email": "email",
		})
	})

	resp, body := perform(t, app)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.False(t, body.Success)
	require.Equal(t, "validation failed", body.Message)
	require.Equal(t, "email", body.Details["WaqfCreateRequest.Donor.Email"])
	require.Empty(t, body.Data)
}

func TestSendErrorDefaultsToInternalError(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return utils.SendError(c, 0, "")
	})

	resp, body := perform(t, app)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	require.False(t, body.Success)
	require.Equal(t, "error", body.Message)
	require.Nil(t, body.Details)
}

func perform(t *testing.T, app *fiber.App) (*http.Response, envelope) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}
