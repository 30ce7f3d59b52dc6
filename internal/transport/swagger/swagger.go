package swagger

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	httpSwagger "github.com/swaggo/http-swagger"
)

func Handler() http.Handler {
	// Serve the OpenAPI spec from api/openapi.yml
	return httpSwagger.Handler(
		httpSwagger.URL("/openapi.yml"), // URL to the OpenAPI spec served at root
	)
}

var (
	specOnce sync.Once
	specJSON []byte
	specErr  error
)

// SpecJSON parses api/openapi.yml once and serves it as JSON for clients
// that cannot consume YAML.
func SpecJSON(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specOnce.Do(func() {
			loader := openapi3.NewLoader()
			doc, err := loader.LoadFromFile("./api/openapi.yml")
			if err != nil {
				specErr = err
				return
			}
			specJSON, specErr = doc.MarshalJSON()
		})

		if specErr != nil {
			logger.Error("failed to load openapi spec", "error", specErr)
			http.Error(w, "spec unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(specJSON)
	}
}
