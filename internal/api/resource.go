package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/patidost/pati_admin_v1/internal/apierrors"
	"github.com/patidost/pati_admin_v1/internal/httpclient"
)

// Resource exposes the uniform operation set over one backend collection.
// All instances share the one authenticated client.
type Resource struct {
	client     *httpclient.Client
	collection string
}

// NewResource builds the operation set for a collection name, e.g. "animals".
func NewResource(client *httpclient.Client, collection string) *Resource {
	return &Resource{client: client, collection: strings.Trim(collection, "/")}
}

// Collection returns the backend collection name this resource addresses.
func (r *Resource) Collection() string { return r.collection }

// ListOptions control plain (unsearched) listing.
type ListOptions struct {
	All  bool // include archived records
	Page int  // zero-based
	Size int
}

// SearchOptions carry the generic free-text term alongside the paging
// window; entity-specific field filters travel in the extra map.
type SearchOptions struct {
	Search string
	All    bool
	Page   int
	Size   int
}

// GetAll lists one page of the collection.
func (r *Resource) GetAll(ctx context.Context, opts ListOptions) (*Page, error) {
	params := url.Values{}
	if opts.All {
		params.Set("all", "true")
	}
	params.Set("page", strconv.Itoa(opts.Page))
	if opts.Size > 0 {
		params.Set("size", strconv.Itoa(opts.Size))
	}
	resp, err := r.client.Do(ctx, http.MethodGet, r.collection, nil, params)
	if err != nil {
		return nil, err
	}
	return NormalizePage(resp.Body, opts.Size)
}

// Search queries /{collection}/search. Empty and whitespace-only values are
// never sent, neither from opts nor from extra, so the backend only sees
// filters the user actually filled in.
func (r *Resource) Search(ctx context.Context, opts SearchOptions, extra map[string]string) (*Page, error) {
	params := url.Values{}
	setParam(params, "search", opts.Search)
	for key, value := range extra {
		setParam(params, key, value)
	}
	if opts.All {
		params.Set("all", "true")
	}
	params.Set("page", strconv.Itoa(opts.Page))
	if opts.Size > 0 {
		params.Set("size", strconv.Itoa(opts.Size))
	}
	resp, err := r.client.Do(ctx, http.MethodGet, r.collection+"/search", nil, params)
	if err != nil {
		return nil, err
	}
	return NormalizePage(resp.Body, opts.Size)
}

// GetOne fetches a single record by id.
func (r *Resource) GetOne(ctx context.Context, id string) (Record, error) {
	var rec Record
	if err := r.client.DoJSON(ctx, http.MethodGet, r.collection+"/"+id, nil, nil, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Create POSTs a new record. Backends answering 201 with an empty body echo
// the input back to the caller.
func (r *Resource) Create(ctx context.Context, rec Record) (Record, error) {
	resp, err := r.client.Do(ctx, http.MethodPost, r.collection, rec, nil)
	if err != nil {
		return nil, err
	}
	return recordOrEcho(resp.Body, rec)
}

// Update PUTs a partial record against an existing id.
func (r *Resource) Update(ctx context.Context, id string, rec Record) (Record, error) {
	resp, err := r.client.Do(ctx, http.MethodPut, r.collection+"/"+id, rec, nil)
	if err != nil {
		return nil, err
	}
	return recordOrEcho(resp.Body, rec)
}

// Delete is the soft delete of the uniform operation set: the backend
// endpoint toggles isActive, so the operation is reversible. The name is
// kept for uniformity with the dictionary layer.
func (r *Resource) Delete(ctx context.Context, id string) error {
	_, err := r.client.Do(ctx, http.MethodPatch, r.collection+"/"+id, nil, nil)
	return err
}

// HardDelete removes the record permanently. Callers are responsible for
// the permanence-window check before invoking.
func (r *Resource) HardDelete(ctx context.Context, id string) error {
	_, err := r.client.Do(ctx, http.MethodDelete, r.collection+"/"+id+"/hard-delete", nil, nil)
	return err
}

func setParam(params url.Values, key, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	params.Set(key, value)
}

// recordOrEcho decodes the mutated record from the response body, falling
// back to echoing the input when the backend answered with no body.
func recordOrEcho(body []byte, input Record) (Record, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return input, nil
	}
	var rec Record
	if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
		return nil, apierrors.Configuration("decode record response: %v", err)
	}
	return rec, nil
}
