package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-reservation-api/internal/models"
	"github.com/noah-isme/classroom-reservation-api/internal/service"
)

type fakeKeyRepo struct {
	keysBySlot map[int]models.Key
	updated    map[string]models.KeyStatus
}

func (f *fakeKeyRepo) List(ctx context.Context, activeOnly bool) ([]models.Room, error) {
	return []models.Room{{ID: "r1", RoomNumber: "101"}}, nil
}

func (f *fakeKeyRepo) FindByID(ctx context.Context, id string) (*models.Room, error) {
	return &models.Room{ID: id, RoomNumber: "101"}, nil
}

func (f *fakeKeyRepo) FindKeyBySlot(ctx context.Context, slotNumber int) (*models.Key, error) {
	if k, ok := f.keysBySlot[slotNumber]; ok {
		return &k, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeKeyRepo) UpdateKeyStatus(ctx context.Context, keyID string, status models.KeyStatus) error {
	if f.updated == nil {
		f.updated = make(map[string]models.KeyStatus)
	}
	f.updated[keyID] = status
	return nil
}

func newTestKeyHandler(repo *fakeKeyRepo) *KeyHandler {
	return NewKeyHandler(service.NewKeyService(repo, validator.New(), zap.NewNop()))
}

func TestKeyHandlerUpdateStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeKeyRepo{keysBySlot: map[int]models.Key{7: {ID: "k1", RoomID: "r1", SlotNumber: 7, Status: models.KeyStored}}}
	handler := newTestKeyHandler(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/iot/keys/status", bytes.NewBufferString(`{"slot_number":7,"status":"USED"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.KeyUsed, repo.updated["k1"])
}

func TestKeyHandlerUpdateStatusUnknownSlot(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestKeyHandler(&fakeKeyRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/iot/keys/status", bytes.NewBufferString(`{"slot_number":99,"status":"USED"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestKeyHandlerUpdateStatusInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTestKeyHandler(&fakeKeyRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/iot/keys/status", bytes.NewBufferString(`{"slot_number":1,"status":"LOST"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
