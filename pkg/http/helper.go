package http

import (
	"fmt"
	"net/http"
	"strconv"
	"wanderlust/pkg/config"
	apperrors "wanderlust/pkg/errors"
)

// QueryInt reads a non-negative integer query parameter. A missing
// parameter yields def.
func QueryInt(r *http.Request, name string, def int64) (int64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0, apperrors.InvalidInput(fmt.Sprintf("invalid %s parameter: %s", name, s))
	}
	return v, nil
}

// ExtractLimitOffset reads limit and offset and clamps them to the
// configured pagination bounds.
func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	limit, err := QueryInt(r, "limit", 0)
	if err != nil {
		return 0, 0, err
	}
	offset, err := QueryInt(r, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	return config.NormalizePaginationLimit(int(limit)), config.NormalizeOffset(offset), nil
}
