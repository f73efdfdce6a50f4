package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsePaginationFor(t *testing.T, target string) Pagination {
	t.Helper()

	var got Pagination
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		got = ParsePagination(c)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, target, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return got
}

func TestParsePaginationDefaults(t *testing.T) {
	got := parsePaginationFor(t, "/")
	assert.Equal(t, Pagination{Page: 1, Limit: 20, Offset: 0}, got)
}

func TestParsePagination(t *testing.T) {
	got := parsePaginationFor(t, "/?page=3&limit=10")
	assert.Equal(t, Pagination{Page: 3, Limit: 10, Offset: 20}, got)
}

func TestParsePaginationBadInput(t *testing.T) {
	got := parsePaginationFor(t, "/?page=-5&limit=abc")
	assert.Equal(t, Pagination{Page: 1, Limit: 20, Offset: 0}, got)
}
