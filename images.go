package main

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const imagePrefix = "news-images/"

// imageStore is the part of storage.ObjectStore the upload route needs.
type imageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// setupImageRoutes registers the image upload. images may be nil when no bucket is configured.
func setupImageRoutes(router *gin.Engine, images imageStore, maxBytes int64, log *zap.Logger) {
	router.POST("/api/news/images", requireUser(), func(c *gin.Context) {
		if images == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image uploads are not enabled"})
			return
		}

		fh, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing image file"})
			return
		}
		if fh.Size > maxBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image is too large"})
			return
		}

		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable image file"})
			return
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable image file"})
			return
		}
		if int64(len(data)) > maxBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image is too large"})
			return
		}

		// trust the bytes, not the client's Content-Type
		mtype := mimetype.Detect(data)
		if !strings.HasPrefix(mtype.String(), "image/") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Only image files are allowed"})
			return
		}

		key := imagePrefix + uuid.NewString() + mtype.Extension()
		link, err := images.Put(c.Request.Context(), key, data, mtype.String())
		if err != nil {
			log.Error("Image upload failed", zap.String("key", key), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		log.Info("Image uploaded", zap.String("key", key), zap.String("user_id", currentUser(c)), zap.Int("bytes", len(data)))
		c.JSON(http.StatusCreated, gin.H{"imageFilename": key, "url": link})
	})
}
