package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"wanderlust/pkg/config"
	apperrors "wanderlust/pkg/errors"
)

func TestExtractLimitOffset(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantLimit  int
		wantOffset int64
		wantErr    bool
	}{
		{"defaults", "/x", config.DefaultPageSize, 0, false},
		{"explicit", "/x?limit=5&offset=20", 5, 20, false},
		{"limit clamped", "/x?limit=100000", config.DefaultPaginationLimit, 0, false},
		{"bad limit", "/x?limit=ten", 0, 0, true},
		{"negative offset", "/x?offset=-1", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset, err := ExtractLimitOffset(httptest.NewRequest(http.MethodGet, tt.url, nil))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
					t.Errorf("error code = %v, want INVALID_INPUT", err)
				}
				return
			}
			if limit != tt.wantLimit || offset != tt.wantOffset {
				t.Errorf("got (%d, %d), want (%d, %d)", limit, offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	if err := WriteError(w, apperrors.InsufficientAvailability(1)); err != nil {
		t.Fatalf("WriteError() error = %v", err)
	}
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if resp.Code != apperrors.CodeInsufficientAvailability || resp.Details[apperrors.DetailRoomsLeft] != float64(1) {
		t.Errorf("resp = %+v", resp)
	}
}

func TestWriteError_HidesInternalCause(t *testing.T) {
	w := httptest.NewRecorder()
	_ = WriteError(w, errors.New("mongo: connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	var resp ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != "Internal server error" {
		t.Errorf("error = %q", resp.Error)
	}
}
