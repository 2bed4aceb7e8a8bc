// Package docs serves the OpenAPI description of the HTTP API.
package docs

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/swaggo/swag"
)

const InstanceName = "ledger"

//go:embed openapi.yaml
var specTemplate string

// SwaggerInfo fills the placeholders of the embedded document.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Title:            "Payment Ledger API",
	Description:      "Cashfree checkout orders, payment reconciliation, manual UPI verification and simulated bank settlement.",
	InfoInstanceName: InstanceName,
	SwaggerTemplate:  specTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// Load renders the registered document for serverURL and validates it
// against OpenAPI 3.
func Load(ctx context.Context, serverURL string) (*openapi3.T, error) {
	SwaggerInfo.Host = strings.TrimRight(serverURL, "/")

	rendered, err := swag.ReadDoc(InstanceName)
	if err != nil {
		return nil, fmt.Errorf("read registered document: %w", err)
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData([]byte(rendered))
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return doc, nil
}

// RegisterDocsRoutes mounts the JSON and YAML renderings under /docs.
func RegisterDocsRoutes(r chi.Router, doc *openapi3.T) error {
	jsonDoc, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode openapi document: %w", err)
	}
	yamlDoc, err := swag.ReadDoc(InstanceName)
	if err != nil {
		return fmt.Errorf("read registered document: %w", err)
	}

	r.Get("/docs/openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jsonDoc)
	})
	r.Get("/docs/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte(yamlDoc))
	})
	return nil
}
