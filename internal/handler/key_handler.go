package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-reservation-api/internal/service"
	appErrors "github.com/noah-isme/classroom-reservation-api/pkg/errors"
	"github.com/noah-isme/classroom-reservation-api/pkg/response"
)

// KeyHandler ingests key cabinet status reports.
type KeyHandler struct {
	keys *service.KeyService
}

// NewKeyHandler constructs a new KeyHandler.
func NewKeyHandler(keys *service.KeyService) *KeyHandler {
	return &KeyHandler{keys: keys}
}

// UpdateStatus godoc
// @Summary Report a key state change from the cabinet
// @Tags Keys
// @Accept json
// @Produce json
// @Param payload body service.KeyStatusUpdate true "Key status payload"
// @Success 200 {object} response.Envelope
// @Router /iot/keys/status [post]
func (h *KeyHandler) UpdateStatus(c *gin.Context) {
	var update service.KeyStatusUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid key status payload"))
		return
	}

	key, err := h.keys.ApplyStatusUpdate(c.Request.Context(), update)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, key, nil)
}
