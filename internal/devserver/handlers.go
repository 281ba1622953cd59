package devserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/patidost/pati_admin_v1/internal/devserver/store"
)

func parsePaging(c *gin.Context) (page, size int, all bool) {
	page = 0
	size = 20
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			page = n
		}
	}
	if v := c.Query("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			size = n
		}
	}
	all = strings.EqualFold(c.Query("all"), "true") || c.Query("all") == "1"
	return page, size, all
}

// envelope builds the pagination envelope over a filtered slice.
func envelope(items []store.Record, page, size int) gin.H {
	total := len(items)
	totalPages := 0
	if size > 0 {
		totalPages = (total + size - 1) / size
	}
	start := page * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	content := items[start:end]
	if content == nil {
		content = []store.Record{}
	}
	return gin.H{
		"content":       content,
		"page":          page,
		"size":          size,
		"totalElements": total,
		"totalPages":    totalPages,
		"hasNext":       page < totalPages-1,
		"hasPrevious":   page > 0,
	}
}

func activeOnly(items []store.Record, all bool) []store.Record {
	if all {
		return items
	}
	out := make([]store.Record, 0, len(items))
	for _, rec := range items {
		if active, ok := rec["isActive"].(bool); !ok || active {
			out = append(out, rec)
		}
	}
	return out
}

// listCollection serves GET /{collection}. Dictionary collections answer
// with a bare array (they are fetched in full); entity collections answer
// with the pagination envelope.
func (s *Server) listCollection(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, size, all := parsePaging(c)
		items, err := s.store.List(c.Request.Context(), collection)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		items = activeOnly(items, all)
		if s.isDictionary(collection) {
			c.JSON(http.StatusOK, items)
			return
		}
		c.JSON(http.StatusOK, envelope(items, page, size))
	}
}

// searchCollection serves GET /{collection}/search. The generic "search"
// term matches any string field; any other query parameter (except the
// paging ones) must match the same-named field, case-insensitively.
func (s *Server) searchCollection(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, size, all := parsePaging(c)
		items, err := s.store.List(c.Request.Context(), collection)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		items = activeOnly(items, all)

		filters := map[string]string{}
		var freeText string
		for key, values := range c.Request.URL.Query() {
			if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
				continue
			}
			switch key {
			case "page", "size", "all":
			case "search":
				freeText = values[0]
			default:
				filters[key] = values[0]
			}
		}

		matched := make([]store.Record, 0, len(items))
		for _, rec := range items {
			if matchesFilters(rec, freeText, filters) {
				matched = append(matched, rec)
			}
		}
		c.JSON(http.StatusOK, envelope(matched, page, size))
	}
}

func matchesFilters(rec store.Record, freeText string, filters map[string]string) bool {
	for field, want := range filters {
		have, ok := rec[field].(string)
		if !ok || !strings.Contains(strings.ToLower(have), strings.ToLower(want)) {
			return false
		}
	}
	if freeText == "" {
		return true
	}
	needle := strings.ToLower(freeText)
	for _, v := range rec {
		if str, ok := v.(string); ok && strings.Contains(strings.ToLower(str), needle) {
			return true
		}
	}
	return false
}

func (s *Server) getOne(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := s.store.Get(c.Request.Context(), collection, c.Param("key"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

func (s *Server) createRecord(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rec store.Record
		if err := c.ShouldBindJSON(&rec); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if s.isDictionary(collection) {
			if code, _ := rec["code"].(string); strings.TrimSpace(code) == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
				return
			}
		}
		created, err := s.store.Insert(c.Request.Context(), collection, rec)
		if err != nil {
			if errors.Is(err, store.ErrDuplicateCode) {
				c.JSON(http.StatusConflict, gin.H{"error": "code already exists"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.changes.Broadcast(ChangeEvent{Action: "created", Collection: collection, ID: recordID(created)})
		c.JSON(http.StatusCreated, created)
	}
}

func (s *Server) updateRecord(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var changes store.Record
		if err := c.ShouldBindJSON(&changes); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		updated, err := s.store.Update(c.Request.Context(), collection, c.Param("key"), changes)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.changes.Broadcast(ChangeEvent{Action: "updated", Collection: collection, ID: recordID(updated)})
		c.JSON(http.StatusOK, updated)
	}
}

// toggleRecord flips isActive; this is the backend's soft "delete".
func (s *Server) toggleRecord(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := s.store.Toggle(c.Request.Context(), collection, c.Param("key"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		s.changes.Broadcast(ChangeEvent{Action: "toggled", Collection: collection, ID: recordID(rec)})
		c.Status(http.StatusNoContent)
	}
}

// hardDeleteRecord removes a record permanently. Entities are protected by
// the permanence window server-side as well, so a skewed client clock
// cannot sneak a delete past the policy.
func (s *Server) hardDeleteRecord(collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		if !s.isDictionary(collection) {
			rec, err := s.store.Get(c.Request.Context(), collection, key)
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
				return
			}
			if !withinWindow(rec, s.windowSeconds) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "hard delete window has expired"})
				return
			}
		}
		if err := s.store.Delete(c.Request.Context(), collection, key); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		s.changes.Broadcast(ChangeEvent{Action: "deleted", Collection: collection, ID: key})
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) systemParameters(c *gin.Context) {
	c.JSON(http.StatusOK, []gin.H{
		{"code": "HARD_DELETE_WINDOW_SECONDS", "parameterValue": strconv.Itoa(s.windowSeconds)},
	})
}

func withinWindow(rec store.Record, windowSeconds int) bool {
	raw, _ := rec["createdAt"].(string)
	created, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return false
	}
	return time.Since(created) <= time.Duration(windowSeconds)*time.Second
}

func recordID(rec store.Record) string {
	if id, ok := rec["id"].(string); ok {
		return id
	}
	if code, ok := rec["code"].(string); ok {
		return code
	}
	return ""
}
