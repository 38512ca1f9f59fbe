package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klinik/backend/internal/interfaces/http/dto"
)

type nikPayload struct {
	NIK string `json:"nik" binding:"required,nik"`
}

func newValidationRouter() *gin.Engine {
	SetupValidator()
	r := gin.New()
	r.Use(RequestID())
	r.POST("/check", func(c *gin.Context) {
		var payload nikPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func postJSON(t *testing.T, r *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/check", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestNIKValidation(t *testing.T) {
	r := newValidationRouter()

	t.Run("accepts a 16 digit nik", func(t *testing.T) {
		w := postJSON(t, r, nikPayload{NIK: "9271060312000001"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects a short nik", func(t *testing.T) {
		w := postJSON(t, r, nikPayload{NIK: "12345"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "nik", resp.Error.Details[0].Field)
		assert.Equal(t, "Must be a 16 digit identity number", resp.Error.Details[0].Message)
	})

	t.Run("rejects a non numeric nik", func(t *testing.T) {
		w := postJSON(t, r, nikPayload{NIK: "92710603120000ab"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("reports a missing nik as required", func(t *testing.T) {
		w := postJSON(t, r, nikPayload{})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "This field is required", resp.Error.Details[0].Message)
	})
}
