package rest_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/waynecorp/project-registry/internal/auth"
	authSqlite "github.com/waynecorp/project-registry/internal/auth/sqlite"
	"github.com/waynecorp/project-registry/internal/core/events"
	"github.com/waynecorp/project-registry/internal/project"
	projectSqlite "github.com/waynecorp/project-registry/internal/project/sqlite"
	"github.com/waynecorp/project-registry/internal/storage"
	"github.com/waynecorp/project-registry/internal/transport"
	"github.com/waynecorp/project-registry/internal/transport/rest"
)

func TestRest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rest Suite")
}

// buildServer wires the full stack against an in-memory database, the
// same way the server command does.
func buildServer() (*httptest.Server, *storage.Store) {
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	Expect(err).NotTo(HaveOccurred())

	sqlDB, err := db.DB()
	Expect(err).NotTo(HaveOccurred())
	sqlDB.SetMaxOpenConns(1)

	store := storage.New(db, bcrypt.MinCost, lg)
	Expect(store.Initialize(context.Background())).To(Succeed())

	base := transport.NewBaseHandler(lg)
	tokens := auth.NewJWTTokenGenerator("integration-test-session-secret", 0)
	authService := auth.NewService(authSqlite.NewRepository(db), tokens, lg)
	authHandler := auth.NewHandler(base, authService)

	bus := events.NewEventBus(lg)
	events.RegisterAuditLogger(bus, lg)
	projectService := project.NewService(projectSqlite.NewProjectRepository(db), authService, bus, lg)
	projectHandler := project.NewHandler(base, projectService, authService)

	healthHandler := rest.NewHealthHandler(sqlx.NewDb(sqlDB, "sqlite3"), store)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, store, healthHandler, authHandler, projectHandler, "*", lg)

	return httptest.NewServer(router), store
}

func doRequest(server *httptest.Server, method, path, bearer string, body []byte) (*http.Response, map[string]interface{}) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	var decoded map[string]interface{}
	Expect(json.NewDecoder(resp.Body).Decode(&decoded)).To(Succeed())
	return resp, decoded
}

func login(server *httptest.Server, username, password string) string {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, decoded := doRequest(server, http.MethodPost, "/login", "", body)
	Expect(resp.StatusCode).To(Equal(http.StatusOK))
	token, _ := decoded["token"].(string)
	Expect(token).NotTo(BeEmpty())
	return token
}

func legacyBearer(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

func projectNames(decoded map[string]interface{}) []string {
	raw, _ := decoded["projects"].([]interface{})
	names := make([]string, 0, len(raw))
	for _, item := range raw {
		p := item.(map[string]interface{})
		names = append(names, p["name"].(string))
	}
	return names
}

var _ = Describe("Registry API", func() {
	var server *httptest.Server

	BeforeEach(func() {
		server, _ = buildServer()
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("service endpoints", func() {
		It("should report health with row counts", func() {
			resp, decoded := doRequest(server, http.MethodGet, "/health", "", nil)

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decoded["success"]).To(BeTrue())
			Expect(decoded["status"]).To(Equal("online"))
			Expect(decoded["initialized"]).To(BeTrue())
			Expect(decoded["projects"]).To(BeEquivalentTo(8))
			Expect(decoded["users"]).To(BeEquivalentTo(3))
		})

		It("should answer ping", func() {
			resp, decoded := doRequest(server, http.MethodGet, "/ping", "", nil)

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decoded["status"]).To(Equal("OK"))
		})

		It("should advertise the endpoints at the root", func() {
			resp, decoded := doRequest(server, http.MethodGet, "/", "", nil)

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decoded["endpoints"]).To(HaveKey("GET /projects"))
		})

		It("should answer unknown routes with the shared error envelope", func() {
			resp, decoded := doRequest(server, http.MethodGet, "/nope", "", nil)

			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(decoded["success"]).To(BeFalse())
			Expect(decoded["error"]).To(Equal("route not found"))
			Expect(decoded["endpoints"]).To(HaveKey("POST /login"))
		})
	})

	Describe("POST /login", func() {
		It("should issue a token for valid credentials", func() {
			body, _ := json.Marshal(map[string]string{"username": "adminiseg1", "password": "bat1234"})
			resp, decoded := doRequest(server, http.MethodPost, "/login", "", body)

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decoded["success"]).To(BeTrue())
			Expect(decoded["token"]).NotTo(BeEmpty())

			user := decoded["user"].(map[string]interface{})
			Expect(user["username"]).To(Equal("adminiseg1"))
			Expect(user["role"]).To(Equal("securityAdmin"))
			Expect(user).NotTo(HaveKey("passwordHash"))
		})

		It("should answer a wrong password and an unknown user identically", func() {
			body, _ := json.Marshal(map[string]string{"username": "adminiseg1", "password": "wrong"})
			resp1, decoded1 := doRequest(server, http.MethodPost, "/login", "", body)

			body, _ = json.Marshal(map[string]string{"username": "who", "password": "bat1234"})
			resp2, decoded2 := doRequest(server, http.MethodPost, "/login", "", body)

			Expect(resp1.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp2.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(decoded1["error"]).To(Equal(decoded2["error"]))
		})

		It("should reject a missing password", func() {
			body, _ := json.Marshal(map[string]string{"username": "adminiseg1"})
			resp, decoded := doRequest(server, http.MethodPost, "/login", "", body)

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decoded["success"]).To(BeFalse())
		})
	})

	Describe("GET /projects", func() {
		It("should show anonymous callers the public tier only", func() {
			resp, decoded := doRequest(server, http.MethodGet, "/projects", "", nil)

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decoded["total"]).To(BeEquivalentTo(3))
			Expect(projectNames(decoded)).To(ConsistOf(
				"Gotham Park Renewal", "Clean Water Initiative", "STEM Scholarship Program",
			))
		})

		It("should show sellers the same view as anonymous callers", func() {
			token := login(server, "vendedor1", "valetudo")
			_, decoded := doRequest(server, http.MethodGet, "/projects", token, nil)

			Expect(decoded["total"]).To(BeEquivalentTo(3))
		})

		It("should show managers commercial and public projects", func() {
			token := login(server, "gerente01", "precisodeaumento")
			_, decoded := doRequest(server, http.MethodGet, "/projects", token, nil)

			Expect(decoded["total"]).To(BeEquivalentTo(6))
			Expect(projectNames(decoded)).NotTo(ContainElement("Project Nightwatch"))
		})

		It("should show security admins every project", func() {
			token := login(server, "adminiseg1", "bat1234")
			_, decoded := doRequest(server, http.MethodGet, "/projects", token, nil)

			Expect(decoded["total"]).To(BeEquivalentTo(8))
		})

		It("should accept the legacy base64 credential form", func() {
			_, decoded := doRequest(server, http.MethodGet, "/projects", legacyBearer("gerente01", "precisodeaumento"), nil)

			Expect(decoded["total"]).To(BeEquivalentTo(6))
		})

		It("should reject invalid credentials instead of downgrading to anonymous", func() {
			resp, decoded := doRequest(server, http.MethodGet, "/projects", legacyBearer("gerente01", "wrong"), nil)

			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(decoded["error"]).To(Equal("invalid credentials"))
		})

		It("should intersect the tier filter with the caller's visibility", func() {
			adminToken := login(server, "adminiseg1", "bat1234")
			_, decoded := doRequest(server, http.MethodGet, "/projects?tier=secret", adminToken, nil)
			Expect(decoded["total"]).To(BeEquivalentTo(2))

			managerToken := login(server, "gerente01", "precisodeaumento")
			_, decoded = doRequest(server, http.MethodGet, "/projects?tier=secret", managerToken, nil)
			Expect(decoded["total"]).To(BeEquivalentTo(0))
		})
	})

	Describe("GET /projects/search", func() {
		It("should only search within the caller's visible tiers", func() {
			resp, decoded := doRequest(server, http.MethodGet, "/projects/search?term=nightwatch", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decoded["total"]).To(BeEquivalentTo(0))

			adminToken := login(server, "adminiseg1", "bat1234")
			_, decoded = doRequest(server, http.MethodGet, "/projects/search?term=NIGHTWATCH", adminToken, nil)
			Expect(projectNames(decoded)).To(Equal([]string{"Project Nightwatch"}))
		})

		It("should return nothing without a term", func() {
			resp, decoded := doRequest(server, http.MethodGet, "/projects/search", "", nil)

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decoded["total"]).To(BeEquivalentTo(0))
		})
	})

	Describe("PUT /projects/{id}", func() {
		It("should demand credentials", func() {
			resp, decoded := doRequest(server, http.MethodPut, "/projects/1", "", []byte(`{"tier":"public"}`))

			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(decoded["error"]).To(Equal("authentication required"))
		})

		It("should reject credentials that do not decode", func() {
			resp, decoded := doRequest(server, http.MethodPut, "/projects/1", "!!not-base64!!", []byte(`{"tier":"public"}`))

			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(decoded["error"]).To(Equal("malformed credentials"))
		})

		It("should forbid sellers and managers and leave the row unchanged", func() {
			sellerToken := login(server, "vendedor1", "valetudo")
			resp, decoded := doRequest(server, http.MethodPut, "/projects/1", sellerToken, []byte(`{"description":"hacked"}`))

			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
			Expect(decoded["error"]).To(Equal("only security administrators may edit projects"))

			adminToken := login(server, "adminiseg1", "bat1234")
			_, listDecoded := doRequest(server, http.MethodGet, "/projects", adminToken, nil)
			for _, item := range listDecoded["projects"].([]interface{}) {
				p := item.(map[string]interface{})
				Expect(p["description"]).NotTo(Equal("hacked"))
			}
		})

		It("should reject immutable fields by name", func() {
			adminToken := login(server, "adminiseg1", "bat1234")
			resp, decoded := doRequest(server, http.MethodPut, "/projects/1", adminToken, []byte(`{"name":"Renamed"}`))

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decoded["error"]).To(Equal("fields not permitted: name"))
		})

		It("should reject an empty patch", func() {
			adminToken := login(server, "adminiseg1", "bat1234")
			resp, _ := doRequest(server, http.MethodPut, "/projects/1", adminToken, []byte(`{}`))

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should answer 404 for a missing project", func() {
			adminToken := login(server, "adminiseg1", "bat1234")
			resp, decoded := doRequest(server, http.MethodPut, "/projects/999", adminToken, []byte(`{"tier":"public"}`))

			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(decoded["error"]).To(Equal("project not found"))
		})

		It("should answer 400 for a non-numeric id", func() {
			adminToken := login(server, "adminiseg1", "bat1234")
			resp, _ := doRequest(server, http.MethodPut, "/projects/abc", adminToken, []byte(`{"tier":"public"}`))

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should apply an admin's patch and make it visible to everyone allowed", func() {
			adminToken := login(server, "adminiseg1", "bat1234")

			// Find a secret project to declassify.
			_, listDecoded := doRequest(server, http.MethodGet, "/projects?tier=secret", adminToken, nil)
			items := listDecoded["projects"].([]interface{})
			Expect(items).NotTo(BeEmpty())
			target := items[0].(map[string]interface{})
			id := int64(target["id"].(float64))
			createdAt := target["createdAt"]

			body := []byte(`{"tier":"public","description":"Declassified for the annual report."}`)
			resp, decoded := doRequest(server, http.MethodPut, "/projects/"+strconv.FormatInt(id, 10), adminToken, body)

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decoded["success"]).To(BeTrue())

			updated := decoded["project"].(map[string]interface{})
			Expect(updated["tier"]).To(Equal("public"))
			Expect(updated["accessLevel"]).To(Equal("Public"))
			Expect(updated["description"]).To(Equal("Declassified for the annual report."))
			Expect(updated["name"]).To(Equal(target["name"]))
			Expect(updated["createdAt"]).To(Equal(createdAt))

			updatedBy := decoded["updatedBy"].(map[string]interface{})
			Expect(updatedBy["username"]).To(Equal("adminiseg1"))

			// The project is now public, so anonymous callers see it.
			_, anonDecoded := doRequest(server, http.MethodGet, "/projects", "", nil)
			Expect(projectNames(anonDecoded)).To(ContainElement(target["name"]))
		})

		It("should accept the legacy base64 credential form for edits", func() {
			bearer := legacyBearer("adminiseg1", "bat1234")
			resp, decoded := doRequest(server, http.MethodPut, "/projects/1", bearer, []byte(`{"description":"Updated over legacy credentials."}`))

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			updated := decoded["project"].(map[string]interface{})
			Expect(updated["description"]).To(Equal("Updated over legacy credentials."))
		})
	})
})
