package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeInvalidRuleConfig, http.StatusBadRequest},
		{ErrCodeIncompatibleUnits, http.StatusUnprocessableEntity},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeInternal, http.StatusInternalServerError},
		{"SOMETHING_NEW", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, GetHTTPStatus(tt.code), "code %s", tt.code)
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode("NOT_FOUND"))
	assert.Equal(t, ErrCodeInvalidRuleConfig, NormalizeErrorCode("INVALID_RULE_CONFIG"))
	assert.Equal(t, ErrCodeIncompatibleUnits, NormalizeErrorCode("INCOMPATIBLE_UNITS"))
	assert.Equal(t, ErrCodeValidation, NormalizeErrorCode("INVALID_SUBSCRIPTION"))
	// API-format and unknown codes pass through unchanged
	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode(ErrCodeNotFound))
	assert.Equal(t, "CUSTOM", NormalizeErrorCode("CUSTOM"))
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2, 3}, 45, 2, 20)

	assert.True(t, resp.Success)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestListRequest_WithDefaults(t *testing.T) {
	req := ListRequest{}.WithDefaults()

	assert.Equal(t, 1, req.Page)
	assert.Equal(t, 20, req.PageSize)
	assert.Equal(t, "asc", req.OrderDir)

	custom := ListRequest{Page: 3, PageSize: 50, OrderDir: "desc"}.WithDefaults()
	assert.Equal(t, 3, custom.Page)
	assert.Equal(t, 50, custom.PageSize)
	assert.Equal(t, "desc", custom.OrderDir)
}
