package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"
)

// OpenAPI is the subset of an OpenAPI 3 document generated from the routes.
type OpenAPI struct {
	OpenAPI string                          `json:"openapi" yaml:"openapi"`
	Info    OpenAPIInfo                     `json:"info" yaml:"info"`
	Paths   map[string]map[string]Operation `json:"paths" yaml:"paths"`
}

type OpenAPIInfo struct {
	Title   string `json:"title" yaml:"title"`
	Version string `json:"version" yaml:"version"`
}

type Operation struct {
	OperationID string              `json:"operationId" yaml:"operationId"`
	Tags        []string            `json:"tags,omitempty" yaml:"tags,omitempty"`
	Parameters  []Parameter         `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Responses   map[string]Response `json:"responses" yaml:"responses"`
}

type Parameter struct {
	Name     string `json:"name" yaml:"name"`
	In       string `json:"in" yaml:"in"`
	Required bool   `json:"required" yaml:"required"`
	Schema   Schema `json:"schema" yaml:"schema"`
}

type Schema struct {
	Type string `json:"type" yaml:"type"`
}

type Response struct {
	Description string `json:"description" yaml:"description"`
}

// BuildOpenAPI describes routes. Gin path parameters (:name, *path) become
// OpenAPI templates ({name}, {path}).
func BuildOpenAPI(title, version string, routes gin.RoutesInfo) OpenAPI {
	doc := OpenAPI{
		OpenAPI: "3.0.3",
		Info:    OpenAPIInfo{Title: title, Version: version},
		Paths:   map[string]map[string]Operation{},
	}
	sorted := append(gin.RoutesInfo(nil), routes...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Path == sorted[j].Path {
			return sorted[i].Method < sorted[j].Method
		}
		return sorted[i].Path < sorted[j].Path
	})
	for _, r := range sorted {
		path, params := openAPIPath(r.Path)
		ops := doc.Paths[path]
		if ops == nil {
			ops = map[string]Operation{}
			doc.Paths[path] = ops
		}
		op := Operation{
			OperationID: operationID(r.Method, r.Path),
			Parameters:  params,
			Responses: map[string]Response{
				"200": {Description: http.StatusText(http.StatusOK)},
				"500": {Description: http.StatusText(http.StatusInternalServerError)},
			},
		}
		if tag := firstSegment(r.Path); tag != "" {
			op.Tags = []string{tag}
		}
		ops[strings.ToLower(r.Method)] = op
	}
	return doc
}

func openAPIPath(p string) (string, []Parameter) {
	segs := strings.Split(p, "/")
	var params []Parameter
	for i, s := range segs {
		if len(s) > 1 && (s[0] == ':' || s[0] == '*') {
			name := s[1:]
			segs[i] = "{" + name + "}"
			params = append(params, Parameter{Name: name, In: "path", Required: true, Schema: Schema{Type: "string"}})
		}
	}
	return strings.Join(segs, "/"), params
}

func operationID(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, s := range strings.Split(path, "/") {
		s = strings.TrimLeft(s, ":*")
		if s == "" {
			continue
		}
		b.WriteString(strings.ToUpper(s[:1]) + s[1:])
	}
	return b.String()
}

func firstSegment(p string) string {
	for _, s := range strings.Split(p, "/") {
		if s != "" && s != "api" {
			return s
		}
	}
	return ""
}

func (s *Server) serveOpenAPIJSON(c *gin.Context) {
	c.JSON(http.StatusOK, s.openAPI())
}

func (s *Server) serveOpenAPIYAML(c *gin.Context) {
	b, err := yaml.Marshal(s.openAPI())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Data(http.StatusOK, "application/yaml", b)
}

func (s *Server) openAPI() OpenAPI {
	return BuildOpenAPI(s.title, "v1", s.engine.Routes())
}
