package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hydrapair-backend/config"
	"hydrapair-backend/models"
	"hydrapair-backend/routes"
	"hydrapair-backend/services"
	"hydrapair-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testAPI struct {
	router *gin.Engine
	db     *gorm.DB
	broker *services.Broker
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_fk=1", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite memory: %v", err)
	}
	if err := db.AutoMigrate(&models.Profile{}, &models.WaterReminder{}, &models.DeliveryLog{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	broker := services.NewBroker()
	router := routes.SetupRouter(routes.Deps{
		DB:       db,
		Push:     services.NewPushService(db, config.PushConfig{}),
		Broker:   broker,
		Notifier: services.NoopNotifier{},
	})

	return &testAPI{router: router, db: db, broker: broker}
}

func (a *testAPI) createProfile(t *testing.T, name, email string) models.Profile {
	t.Helper()

	profile := models.Profile{Name: name, Email: email, Password: "password123"}
	if err := a.db.Create(&profile).Error; err != nil {
		t.Fatalf("create profile %s: %v", email, err)
	}
	return profile
}

func (a *testAPI) request(t *testing.T, method, path string, body interface{}, asProfile *models.Profile) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if asProfile != nil {
		token, err := utils.GenerateToken(asProfile.ID.String())
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func (a *testAPI) reloadProfile(t *testing.T, id uuid.UUID) models.Profile {
	t.Helper()

	var profile models.Profile
	if err := a.db.First(&profile, "id = ?", id).Error; err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	return profile
}

func TestRegisterLoginAndMe(t *testing.T) {
	api := newTestAPI(t)

	w := api.request(t, http.MethodPost, "/auth/register", gin.H{
		"name":     "Alice",
		"email":    "Alice@Example.COM",
		"password": "password123",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: got %d, body %s", w.Code, w.Body.String())
	}

	// Stored lowercase; login with any casing works.
	w = api.request(t, http.MethodPost, "/auth/login", gin.H{
		"email":    "alice@example.com",
		"password": "password123",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login: got %d, body %s", w.Code, w.Body.String())
	}
	token, _ := decodeBody(t, w)["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	me := httptest.NewRecorder()
	api.router.ServeHTTP(me, req)
	if me.Code != http.StatusOK {
		t.Fatalf("me: got %d, body %s", me.Code, me.Body.String())
	}

	w = api.request(t, http.MethodPost, "/auth/login", gin.H{
		"email":    "alice@example.com",
		"password": "wrong-password",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: got %d, want 401", w.Code)
	}
}

func TestPairingLinksBothProfiles(t *testing.T) {
	api := newTestAPI(t)
	alice := api.createProfile(t, "Alice", "alice@example.com")
	bob := api.createProfile(t, "Bob", "bob@example.com")

	// Case-insensitive lookup is part of the contract.
	w := api.request(t, http.MethodPost, "/api/pair", gin.H{
		"partnerEmail": "Bob@Example.COM",
	}, &alice)
	if w.Code != http.StatusOK {
		t.Fatalf("pair: got %d, body %s", w.Code, w.Body.String())
	}

	gotAlice := api.reloadProfile(t, alice.ID)
	gotBob := api.reloadProfile(t, bob.ID)
	if gotAlice.PartnerID == nil || *gotAlice.PartnerID != bob.ID {
		t.Fatalf("alice.partner_id = %v, want %s", gotAlice.PartnerID, bob.ID)
	}
	if gotBob.PartnerID == nil || *gotBob.PartnerID != alice.ID {
		t.Fatalf("bob.partner_id = %v, want %s", gotBob.PartnerID, alice.ID)
	}
}

func TestPairingWithTakenPartnerMutatesNothing(t *testing.T) {
	api := newTestAPI(t)
	alice := api.createProfile(t, "Alice", "alice@example.com")
	bob := api.createProfile(t, "Bob", "bob@example.com")
	carol := api.createProfile(t, "Carol", "carol@example.com")

	if w := api.request(t, http.MethodPost, "/api/pair", gin.H{
		"partnerEmail": bob.Email,
	}, &carol); w.Code != http.StatusOK {
		t.Fatalf("setup pair: got %d", w.Code)
	}

	w := api.request(t, http.MethodPost, "/api/pair", gin.H{
		"partnerEmail": bob.Email,
	}, &alice)
	if w.Code != http.StatusConflict {
		t.Fatalf("got %d, want 409", w.Code)
	}

	if got := api.reloadProfile(t, alice.ID); got.PartnerID != nil {
		t.Fatalf("alice.partner_id = %v, want nil", got.PartnerID)
	}
	if got := api.reloadProfile(t, bob.ID); got.PartnerID == nil || *got.PartnerID != carol.ID {
		t.Fatalf("bob.partner_id = %v, want %s", got.PartnerID, carol.ID)
	}
}

func TestPairingWithSelfRejected(t *testing.T) {
	api := newTestAPI(t)
	alice := api.createProfile(t, "Alice", "alice@example.com")

	w := api.request(t, http.MethodPost, "/api/pair", gin.H{
		"partnerEmail": alice.Email,
	}, &alice)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", w.Code)
	}
	if got := api.reloadProfile(t, alice.ID); got.PartnerID != nil {
		t.Fatalf("alice.partner_id = %v, want nil", got.PartnerID)
	}
}

func TestPairingWithUnknownEmail(t *testing.T) {
	api := newTestAPI(t)
	alice := api.createProfile(t, "Alice", "alice@example.com")

	w := api.request(t, http.MethodPost, "/api/pair", gin.H{
		"partnerEmail": "nobody@example.com",
	}, &alice)
	if w.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", w.Code)
	}
}
