// Package openapi describes the mounted HTTP routes as an OpenAPI 3.0
// document and serves it together with a Swagger UI page.
package openapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

// RouteSource lists the registered routes, normally (*echo.Echo).Routes.
type RouteSource func() []*echo.Route

// Generator builds the OpenAPI document from the route table.
type Generator struct {
	routes  RouteSource
	version string
	baseURL string
	// public reports whether a route pattern is reachable without a token.
	public func(path string) bool
}

func NewGenerator(routes RouteSource, version, baseURL string, public func(path string) bool) *Generator {
	return &Generator{routes: routes, version: version, baseURL: baseURL, public: public}
}

var documentedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
}

// GenerateSpec produces the OpenAPI document as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	paths := make(map[string]interface{})
	tagSet := map[string]bool{}

	routes := g.routes()
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})

	for _, r := range routes {
		if !documentedMethods[r.Method] || strings.HasSuffix(r.Path, "/*") {
			continue
		}
		oasPath, params := convertPath(r.Path)
		tag := tagFor(r.Path)
		tagSet[tag] = true

		op := map[string]interface{}{
			"summary":     strings.ToUpper(r.Method) + " " + r.Path,
			"operationId": operationID(r),
			"tags":        []string{tag},
			"responses":   responsesFor(r.Method),
		}
		if len(params) > 0 {
			op["parameters"] = params
		}
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			op["requestBody"] = map[string]interface{}{
				"required": true,
				"content": map[string]interface{}{
					"application/json": map[string]interface{}{
						"schema": map[string]interface{}{"type": "object"},
					},
				},
			}
		}
		if g.public == nil || !g.public(r.Path) {
			op["security"] = []map[string][]string{{"bearerAuth": {}}}
		}

		item, _ := paths[oasPath].(map[string]interface{})
		if item == nil {
			item = map[string]interface{}{}
			paths[oasPath] = item
		}
		item[strings.ToLower(r.Method)] = op
	}

	tags := make([]map[string]string, 0, len(tagSet))
	for _, t := range sortedKeys(tagSet) {
		tags = append(tags, map[string]string{"name": t})
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "Clinic Prescription API",
			"version":     g.version,
			"description": "Patients, medicine catalog, prescriptions and templates of a clinic",
		},
		"servers": []map[string]string{{"url": g.baseURL}},
		"paths":   paths,
		"tags":    tags,
		"components": map[string]interface{}{
			"securitySchemes": map[string]interface{}{
				"bearerAuth": map[string]string{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
			"schemas": map[string]interface{}{
				"Error": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"message": map[string]string{"type": "string"},
					},
				},
			},
		},
	}
}

// convertPath turns echo's ":id" segments into "{id}" and lists them as path
// parameters.
func convertPath(path string) (string, []map[string]interface{}) {
	segments := strings.Split(path, "/")
	var params []map[string]interface{}
	for i, s := range segments {
		if strings.HasPrefix(s, ":") {
			name := s[1:]
			segments[i] = "{" + name + "}"
			params = append(params, map[string]interface{}{
				"name":     name,
				"in":       "path",
				"required": true,
				"schema":   map[string]string{"type": "string"},
			})
		}
	}
	return strings.Join(segments, "/"), params
}

// tagFor groups a route by its first resource segment, e.g.
// "/api/v1/patients/:id" -> "patients".
func tagFor(path string) string {
	for _, s := range strings.Split(path, "/") {
		switch s {
		case "", "api", "v1":
			continue
		}
		if strings.HasPrefix(s, ":") {
			continue
		}
		return s
	}
	return "root"
}

func operationID(r *echo.Route) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(r.Method))
	for _, s := range strings.Split(r.Path, "/") {
		s = strings.TrimPrefix(s, ":")
		for _, part := range strings.FieldsFunc(s, func(c rune) bool { return c == '-' || c == '.' || c == '_' }) {
			b.WriteString(strings.ToUpper(part[:1]) + part[1:])
		}
	}
	return b.String()
}

func responsesFor(method string) map[string]interface{} {
	errRef := map[string]interface{}{
		"description": "Error",
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]string{"$ref": "#/components/schemas/Error"},
			},
		},
	}
	ok := "200"
	switch method {
	case http.MethodPost:
		ok = "201"
	case http.MethodDelete:
		ok = "204"
	}
	return map[string]interface{}{
		ok:    map[string]string{"description": "Success"},
		"400": errRef,
		"401": errRef,
		"404": errRef,
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Clinic Prescription API - Swagger UI</title>
  <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" >
  <style>
    html { box-sizing: border-box; overflow-y: scroll; }
    *, *:before, *:after { box-sizing: inherit; }
    body { margin: 0; background: #fafafa; }
  </style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/api/openapi.json",
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [
        SwaggerUIBundle.presets.apis,
        SwaggerUIBundle.SwaggerUIStandalonePreset
      ],
      layout: "BaseLayout"
    })
  </script>
</body>
</html>`

// RegisterRoutes serves /openapi.json and /docs under the group.
func (g *Generator) RegisterRoutes(apiGroup *echo.Group) {
	apiGroup.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	})
	apiGroup.GET("/docs", func(c echo.Context) error {
		return c.HTML(http.StatusOK, swaggerUIHTML)
	})
}
