package entity

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/patidost/pati_admin_v1/internal/api"
	"github.com/patidost/pati_admin_v1/internal/dictionary"
	"github.com/patidost/pati_admin_v1/internal/httpclient"
	"github.com/patidost/pati_admin_v1/internal/schema"
)

// loadOptions resolves the choices of every sourced select field, once per
// schema activation. Loads run in parallel and are isolated: a failing
// field falls back to an empty option list without blocking the others.
func (c *Controller) loadOptions(ctx context.Context) {
	c.mu.Lock()
	sch := c.schema
	loader := c.cfg.Options
	c.mu.Unlock()
	if loader == nil || sch == nil {
		return
	}

	var fields []schema.FieldSpec
	for _, f := range sch.Fields {
		if f.Kind == schema.KindSelect {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return
	}

	loaded := make([][]schema.Option, len(fields))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range fields {
		i, f := i, f
		g.Go(func() error {
			opts, err := loader.LoadOptions(gctx, f)
			if err != nil {
				c.logger.Warn("option load failed", "field", f.Name, "error", err)
				opts = nil
			}
			loaded[i] = opts
			return nil
		})
	}
	_ = g.Wait()

	c.mu.Lock()
	for i, f := range fields {
		if loaded[i] == nil {
			loaded[i] = []schema.Option{}
		}
		c.options[f.Name] = loaded[i]
	}
	c.mu.Unlock()
	c.emit()
}

// ResourceOptionLoader resolves select options against the backend:
// dictionary-sourced fields through the dictionary service, entity-sourced
// fields through a throwaway resource over the field's endpoint.
type ResourceOptionLoader struct {
	Dictionaries *dictionary.Service
	Client       *httpclient.Client
}

func (l *ResourceOptionLoader) LoadOptions(ctx context.Context, field schema.FieldSpec) ([]schema.Option, error) {
	if len(field.Options) > 0 {
		return field.Options, nil
	}

	if field.Dictionary != "" {
		items, err := l.Dictionaries.List(ctx, field.Dictionary, false)
		if err != nil {
			return nil, err
		}
		opts := make([]schema.Option, 0, len(items))
		for _, item := range items {
			label := item.GetString("label")
			if label == "" {
				label = item.GetString("name")
			}
			opts = append(opts, schema.Option{Value: item.GetString("code"), Label: label})
		}
		return opts, nil
	}

	if field.EntityEndpoint != "" {
		valueField := field.EntityValueField
		if valueField == "" {
			valueField = "id"
		}
		labelField := field.EntityLabelField
		if labelField == "" {
			labelField = "name"
		}
		page, err := api.NewResource(l.Client, field.EntityEndpoint).GetAll(ctx, api.ListOptions{Size: 1000})
		if err != nil {
			return nil, err
		}
		opts := make([]schema.Option, 0, len(page.Content))
		for _, rec := range page.Content {
			opts = append(opts, schema.Option{Value: rec.ID(valueField), Label: rec.GetString(labelField)})
		}
		return opts, nil
	}

	return []schema.Option{}, nil
}
