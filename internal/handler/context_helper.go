package handler

import (
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pe-space-master/internal/middleware"
	"github.com/noah-isme/pe-space-master/internal/models"
	appErrors "github.com/noah-isme/pe-space-master/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// sessionFromContext returns the allocation session id bound to the caller's token.
func sessionFromContext(c *gin.Context) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil || claims.SessionID == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "missing session")
	}
	return claims.SessionID, nil
}

// uploadedFile reads the "file" part of a multipart request, enforcing maxBytes.
func uploadedFile(c *gin.Context, maxBytes int64) (*multipart.FileHeader, multipart.File, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "multipart field \"file\" is required")
	}
	if maxBytes > 0 && header.Size > maxBytes {
		return nil, nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "uploaded file exceeds "+strconv.FormatInt(maxBytes, 10)+" bytes")
	}
	file, err := header.Open()
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "uploaded file could not be opened")
	}
	return header, file, nil
}

// headerRowParam reads the optional 1-based headerRow field. Zero means the configured default.
func headerRowParam(c *gin.Context) (int, error) {
	raw := strings.TrimSpace(c.PostForm("headerRow"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "headerRow must be a positive integer")
	}
	return n, nil
}
