package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-fees-api/internal/middleware"
	"github.com/noah-isme/sma-fees-api/internal/models"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext is the identity written to recorded_by style columns.
func actorFromContext(c *gin.Context) string {
	return claimsFromContext(c).Actor()
}

// periodFromQuery reads the mandatory year and term query parameters.
func periodFromQuery(c *gin.Context) (int, models.Term, error) {
	year, err := strconv.Atoi(strings.TrimSpace(c.Query("year")))
	if err != nil || year <= 0 {
		return 0, "", appErrors.Clone(appErrors.ErrValidation, "year must be a positive integer")
	}
	term := models.Term(strings.TrimSpace(c.Query("term")))
	if !term.Valid() {
		return 0, "", appErrors.Clone(appErrors.ErrValidation, "term must be Term1, Term2 or Term3")
	}
	return year, term, nil
}

// optionalPeriod reads year and term when present.
func optionalPeriod(c *gin.Context) (*int, *models.Term, error) {
	var (
		year *int
		term *models.Term
	)
	if raw := strings.TrimSpace(c.Query("year")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "year must be a positive integer")
		}
		year = &v
	}
	if raw := strings.TrimSpace(c.Query("term")); raw != "" {
		t := models.Term(raw)
		if !t.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "term must be Term1, Term2 or Term3")
		}
		term = &t
	}
	return year, term, nil
}

// listQuery accepts repeated parameters as well as comma separated values.
func listQuery(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if v := strings.TrimSpace(part); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
