package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/hqv2016/salonpulse/pkg/errors"
	"github.com/hqv2016/salonpulse/pkg/validator"
)

// bindAndValidate decodes the JSON body and runs struct validation.
func bindAndValidate(c *gin.Context, target any) error {
	if err := c.ShouldBindJSON(target); err != nil {
		return apperrors.NewBadRequest("invalid request body")
	}
	if err := validator.ValidateStruct(target); err != nil {
		return apperrors.NewBadRequest(err.Error())
	}
	return nil
}

// parseIntQuery reads an integer query parameter, falling back on absence or
// garbage.
func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// parseBoolQuery reads a boolean query parameter.
func parseBoolQuery(c *gin.Context, name string) bool {
	value, err := strconv.ParseBool(c.Query(name))
	return err == nil && value
}
