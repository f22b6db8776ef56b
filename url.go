package callapi

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// routeParamPattern matches ":name" and "{name}" tokens in a route template.
var routeParamPattern = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)|\{([^{}/]+)\}`)

var routeMethods = map[string]string{
	"get":     http.MethodGet,
	"post":    http.MethodPost,
	"put":     http.MethodPut,
	"patch":   http.MethodPatch,
	"delete":  http.MethodDelete,
	"head":    http.MethodHead,
	"options": http.MethodOptions,
}

// parseRoute splits a route of the form "@method/path" into its pinned method
// and the remaining path. Routes without a recognized method marker return an
// empty method and the route unchanged.
func parseRoute(route string) (method, path string) {
	if !strings.HasPrefix(route, "@") {
		return "", route
	}
	rest := route[1:]
	slash := strings.Index(rest, "/")
	if slash < 0 {
		return "", route
	}
	m, ok := routeMethods[strings.ToLower(rest[:slash])]
	if !ok {
		return "", route
	}
	return m, rest[slash:]
}

// substituteParams replaces ":name" and "{name}" tokens with their values.
// Tokens without a value are left verbatim.
func substituteParams(target string, params map[string]any) string {
	if len(params) == 0 || !strings.ContainsAny(target, ":{") {
		return target
	}
	return routeParamPattern.ReplaceAllStringFunc(target, func(token string) string {
		name := token
		if strings.HasPrefix(token, ":") {
			name = token[1:]
		} else {
			name = strings.Trim(token, "{}")
		}
		v, ok := params[name]
		if !ok {
			return token
		}
		return url.PathEscape(stringifyParam(v))
	})
}

// buildURL assembles the final target from the route path, parameter
// substitution, query values and the base URL. Absolute targets skip the
// base URL join.
func buildURL(baseURL, target string, params map[string]any, query url.Values) string {
	u := substituteParams(target, params)

	if len(query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + query.Encode()
	}

	if baseURL == "" || isAbsoluteURL(u) {
		return u
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(u, "/")
}

func isAbsoluteURL(s string) bool {
	return strings.Contains(s, "://")
}

func stringifyParam(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", v)
	}
}
