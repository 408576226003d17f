package connector

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/tjfontaine/polyglot-connector/internal/core/ports"
	"github.com/tjfontaine/polyglot-connector/internal/dispatch"
	"github.com/tjfontaine/polyglot-connector/internal/pkg/config"
)

// BodyArg is the argument key whose value becomes the raw request body.
const BodyArg = "body"

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// TemplateRequest is a request declared in configuration. Its endpoint may
// contain {placeholders} that are filled from dispatch arguments.
type TemplateRequest struct {
	name        string
	method      string
	endpoint    string
	headers     http.Header
	query       url.Values
	body        []byte
	contentType string
}

var (
	_ ports.Request        = (*TemplateRequest)(nil)
	_ ports.Named          = (*TemplateRequest)(nil)
	_ ports.HeaderProvider = (*TemplateRequest)(nil)
	_ ports.QueryProvider  = (*TemplateRequest)(nil)
	_ ports.BodyProvider   = (*TemplateRequest)(nil)
)

func (r *TemplateRequest) Name() string         { return r.name }
func (r *TemplateRequest) Method() string       { return r.method }
func (r *TemplateRequest) Endpoint() string     { return r.endpoint }
func (r *TemplateRequest) Headers() http.Header { return r.headers }
func (r *TemplateRequest) Query() url.Values    { return r.query }

func (r *TemplateRequest) Body() ([]byte, string, error) {
	return r.body, r.contentType, nil
}

// TemplateFactory returns a RequestFactory for a configured request.
//
// Arguments are "key=value" strings or map[string]string values. A key that
// names an endpoint placeholder fills it (path-escaped); the key "body" sets
// the raw body; every other key becomes a query parameter, overriding
// configured defaults. A placeholder left unfilled is an error.
func TemplateFactory(group string, cfg config.RequestConfig) dispatch.RequestFactory {
	name := cfg.Name
	if group != "" {
		name = group + "." + cfg.Name
	}

	return func(args ...any) (ports.Request, error) {
		values, err := parseArgs(args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		req := &TemplateRequest{
			name:    name,
			method:  strings.ToUpper(cfg.Method),
			headers: make(http.Header),
			query:   make(url.Values),
		}
		for k, v := range cfg.Headers {
			req.headers.Set(k, v)
		}
		for k, v := range cfg.Query {
			req.query.Set(k, v)
		}

		placeholders := make(map[string]bool)
		for _, m := range placeholderPattern.FindAllStringSubmatch(cfg.Endpoint, -1) {
			placeholders[m[1]] = true
		}

		var missing []string
		req.endpoint = placeholderPattern.ReplaceAllStringFunc(cfg.Endpoint, func(match string) string {
			key := match[1 : len(match)-1]
			v, ok := values[key]
			if !ok {
				missing = append(missing, key)
				return match
			}
			return url.PathEscape(v)
		})
		if len(missing) > 0 {
			return nil, fmt.Errorf("%s: missing argument for %s", name, strings.Join(missing, ", "))
		}

		for k, v := range values {
			switch {
			case placeholders[k]:
			case k == BodyArg:
				req.body = []byte(v)
				req.contentType = req.headers.Get("Content-Type")
				if req.contentType == "" {
					req.contentType = "application/json"
				}
			default:
				req.query.Set(k, v)
			}
		}

		return req, nil
	}
}

func parseArgs(args []any) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		switch a := arg.(type) {
		case map[string]string:
			for k, v := range a {
				values[k] = v
			}
		case string:
			key, value, ok := strings.Cut(a, "=")
			if !ok || key == "" {
				return nil, fmt.Errorf("argument %q is not key=value", a)
			}
			values[key] = value
		default:
			return nil, fmt.Errorf("unsupported argument type %T", arg)
		}
	}
	return values, nil
}
