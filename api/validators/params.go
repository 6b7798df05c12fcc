package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/hazelline/communitybot-backend/pkg/errors"
	"github.com/go-chi/chi/v5"
)

// ParseSnowflakeParam reads a chi URL parameter as a Discord snowflake id.
func ParseSnowflakeParam(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "path parameter missing").WithDetails(map[string]any{"field": key})
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "path parameter must be a snowflake id").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}

// ParseSnowflakeQuery reads a query parameter as a Discord snowflake id.
func ParseSnowflakeQuery(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter missing").WithDetails(map[string]any{"field": key})
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a snowflake id").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
