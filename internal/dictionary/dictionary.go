// Package dictionary gives typed access to the platform's lookup
// collections: small backend-managed sets of {code, label} pairs such as
// colors and sizes. The set of dictionaries is closed; an unknown
// identifier fails before any network call.
package dictionary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/patidost/pati_admin_v1/internal/api"
	"github.com/patidost/pati_admin_v1/internal/apierrors"
	"github.com/patidost/pati_admin_v1/internal/httpclient"
)

// listSize is the page size used for dictionary listing. Dictionaries are
// small enough to fetch in full, unpaginated.
const listSize = 1000

// definition maps a logical dictionary id to its backend collection. The
// wire adapter rewrites the logical {code,label} shape into the collection's
// expected field names, so per-dictionary naming quirks stay in one place.
type definition struct {
	collection string
	createWire func(code, label string) api.Record
	updateWire func(label string) api.Record
}

func plainWire() definition {
	return definition{
		createWire: func(code, label string) api.Record {
			return api.Record{"code": code, "label": label}
		},
		updateWire: func(label string) api.Record {
			return api.Record{"label": label}
		},
	}
}

// proficiency levels are the one dictionary whose backend names the label
// field "name" instead of "label".
func nameWire() definition {
	return definition{
		createWire: func(code, label string) api.Record {
			return api.Record{"code": code, "name": label}
		},
		updateWire: func(label string) api.Record {
			return api.Record{"name": label}
		},
	}
}

var registry = buildRegistry()

func buildRegistry() map[string]definition {
	reg := map[string]definition{}
	add := func(id, collection string, def definition) {
		def.collection = collection
		reg[id] = def
	}
	add("color", "colors", plainWire())
	add("size", "sizes", plainWire())
	add("gender", "genders", plainWire())
	add("age-group", "age-groups", plainWire())
	add("source-type", "source-types", plainWire())
	add("training-category", "training-categories", plainWire())
	add("proficiency-level", "proficiency-levels", nameWire())
	return reg
}

// IDs returns the known logical dictionary identifiers, sorted.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Collection resolves a logical id to its backend collection name.
func Collection(id string) (string, error) {
	def, err := resolve(id)
	if err != nil {
		return "", err
	}
	return def.collection, nil
}

func resolve(id string) (definition, error) {
	def, ok := registry[id]
	if !ok {
		return definition{}, apierrors.Configuration("unknown dictionary %q", id)
	}
	return def, nil
}

// Service performs dictionary CRUD through the authenticated client.
type Service struct {
	client *httpclient.Client
}

func NewService(client *httpclient.Client) *Service {
	return &Service{client: client}
}

// List fetches all items of a dictionary. includeInactive controls the
// backend's all flag; the response may be a bare array or a page envelope
// and is normalized to a plain slice either way.
func (s *Service) List(ctx context.Context, id string, includeInactive bool) ([]api.Record, error) {
	def, err := resolve(id)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("all", strconv.FormatBool(includeInactive))
	params.Set("size", strconv.Itoa(listSize))
	resp, err := s.client.Do(ctx, http.MethodGet, def.collection, nil, params)
	if err != nil {
		return nil, err
	}
	page, err := api.NormalizePage(resp.Body, listSize)
	if err != nil {
		return nil, err
	}
	return page.Content, nil
}

// Create adds a new item. code must be unique within the dictionary and is
// immutable afterwards.
func (s *Service) Create(ctx context.Context, id, code, label string) (api.Record, error) {
	def, err := resolve(id)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(ctx, http.MethodPost, def.collection, def.createWire(code, label), nil)
	if err != nil {
		return nil, err
	}
	return decodeItem(resp.Body, def.createWire(code, label))
}

// Update changes an item's label; code is only the path key.
func (s *Service) Update(ctx context.Context, id, code, label string) (api.Record, error) {
	def, err := resolve(id)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(ctx, http.MethodPut, def.collection+"/"+code, def.updateWire(label), nil)
	if err != nil {
		return nil, err
	}
	return decodeItem(resp.Body, def.updateWire(label))
}

// ToggleActive flips the item's active flag. This is the "delete" of the
// admin UI: archiving is reversible by toggling again.
func (s *Service) ToggleActive(ctx context.Context, id, code string) error {
	def, err := resolve(id)
	if err != nil {
		return err
	}
	_, err = s.client.Do(ctx, http.MethodPatch, def.collection+"/"+code+"/toggle", nil, nil)
	return err
}

// HardDelete removes the item permanently. Dictionary items carry no
// permanence window, unlike entities.
func (s *Service) HardDelete(ctx context.Context, id, code string) error {
	def, err := resolve(id)
	if err != nil {
		return err
	}
	_, err = s.client.Do(ctx, http.MethodDelete, def.collection+"/"+code+"/hard-delete", nil, nil)
	return err
}

func decodeItem(body []byte, fallback api.Record) (api.Record, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fallback, nil
	}
	var rec api.Record
	if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
		return nil, apierrors.Configuration("decode dictionary response: %v", err)
	}
	return rec, nil
}
