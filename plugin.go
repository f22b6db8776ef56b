package callapi

import (
	"context"

	"github.com/mitchellh/mapstructure"
)

// Plugin bundles hooks, middlewares, route schemas and a setup step under a
// stable identity. Plugins run in registration order during call setup and
// may mutate the request context the same way hooks can.
type Plugin struct {
	// ID must be non-empty and unique among a client's plugins.
	ID   string
	Name string
	// Version, when set, must parse as semantic versioning.
	Version string

	// Hooks are composed with client and call hooks per the registration
	// order setting.
	Hooks *Hooks
	// Middlewares are registered before client and call middlewares, so the
	// main middlewares wrap them.
	Middlewares []Middleware
	// Schemas are merged under the client's schema table; on key conflict the
	// client's entry wins.
	Schemas RouteSchemas

	// DefineExtraOptions validates and optionally transforms the call's Meta
	// bag before Setup runs, letting a plugin type-check its own options.
	DefineExtraOptions Validator

	// Setup runs once per call attempt before hooks fire. Errors are fatal:
	// the call is rejected before dispatch and never becomes an error result.
	Setup func(ctx context.Context, rc *RequestContext) error
}

// DecodeMeta decodes a Meta bag into a typed struct using JSON field names.
// Plugins use it to read their options out of CallOptions.Meta.
func DecodeMeta(meta map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "json",
	})
	if err != nil {
		return err
	}
	return dec.Decode(meta)
}

// pluginSurfaces collects what the registered plugins contribute to one call.
func pluginSurfaces(plugins []*Plugin) (hooks []Hooks, middlewares []Middleware, schemas RouteSchemas) {
	for _, p := range plugins {
		if p == nil {
			continue
		}
		if p.Hooks != nil {
			hooks = append(hooks, *p.Hooks)
		}
		middlewares = append(middlewares, p.Middlewares...)
		if len(p.Schemas) > 0 {
			if schemas == nil {
				schemas = make(RouteSchemas, len(p.Schemas))
			}
			for key, entry := range p.Schemas {
				schemas[key] = entry
			}
		}
	}
	return hooks, middlewares, schemas
}

// mergeSchemaTables overlays the client table on the plugin-contributed one.
func mergeSchemaTables(plugin, client RouteSchemas) RouteSchemas {
	if len(plugin) == 0 {
		return client
	}
	merged := make(RouteSchemas, len(plugin)+len(client))
	for key, entry := range plugin {
		merged[key] = entry
	}
	for key, entry := range client {
		merged[key] = entry
	}
	return merged
}
