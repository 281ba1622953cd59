// Package api provides the normalized Page/Record types and the generic
// entity resource factory used by every collection-specific layer.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/patidost/pati_admin_v1/internal/apierrors"
)

// Record is one entity or dictionary item as received from the backend.
type Record map[string]any

// GetString returns the field as a string, or "" when absent or not a string.
func (r Record) GetString(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// GetBool returns the field as a bool, defaulting to false.
func (r Record) GetBool(key string) bool {
	if v, ok := r[key].(bool); ok {
		return v
	}
	return false
}

// ID returns the record identifier under idField ("id" when empty),
// stringified so numeric ids from JSON are usable in URL paths.
func (r Record) ID(idField string) string {
	if idField == "" {
		idField = "id"
	}
	switch v := r[idField].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Page is the uniform paginated envelope all list and search operations
// return. Page numbers are zero-based.
type Page struct {
	Content       []Record `json:"content"`
	Page          int      `json:"page"`
	Size          int      `json:"size"`
	TotalElements int      `json:"totalElements"`
	TotalPages    int      `json:"totalPages"`
	HasNext       bool     `json:"hasNext"`
	HasPrevious   bool     `json:"hasPrevious"`
}

// NormalizePage parses a list response body. The backend may answer with a
// proper Page envelope or with a bare array; a bare array is wrapped into a
// synthetic single page so the ambiguity never leaks past this layer.
func NormalizePage(body []byte, requestedSize int) (*Page, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &Page{Content: []Record{}, TotalPages: 1}, nil
	}

	if trimmed[0] == '[' {
		var items []Record
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, apierrors.Configuration("decode list response: %v", err)
		}
		size := requestedSize
		if size <= 0 {
			size = len(items)
		}
		return &Page{
			Content:       items,
			Page:          0,
			Size:          size,
			TotalElements: len(items),
			TotalPages:    1,
			HasNext:       false,
			HasPrevious:   false,
		}, nil
	}

	var page Page
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, apierrors.Configuration("decode page response: %v", err)
	}
	if page.Content == nil {
		page.Content = []Record{}
	}
	return &page, nil
}
