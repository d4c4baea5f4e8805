package main

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"net/http"
	"path"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tomaszgubala/car-dealer/config"
	"github.com/tomaszgubala/car-dealer/utils"
)

const maxUploadSizeBytes int64 = 5 * 1024 * 1024

const thumbnailWidth = 640

var imageMimeTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

type uploadResponse struct {
	ImageURL     string `json:"imageUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	ObjectKey    string `json:"objectKey"`
}

// uploadImageHandler takes a multipart vehicle photo, stores the
// original and a resized thumbnail, and returns their public URLs for
// the admin form to attach to a vehicle.
func uploadImageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}
		if int64(len(data)) > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}

		mimeType := http.DetectContentType(data)
		ext, ok := imageMimeTypes[mimeType]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
			return
		}

		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image file"})
			return
		}

		name := uuid.New().String()
		objectKey := path.Join("vehicles", name+ext)
		thumbKey := path.Join("vehicles", "thumbs", name+ext)

		ctx := c.Request.Context()
		imageURL, err := utils.UploadBytesToGCS(ctx, objectKey, mimeType, data)
		if err != nil {
			config.LogError(logger, "uploads", "uploadImage", "storing original", objectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store image"})
			return
		}

		thumbData, err := encodeThumbnail(img, mimeType)
		if err != nil {
			config.LogError(logger, "uploads", "uploadImage", "encoding thumbnail", objectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process image"})
			return
		}
		thumbURL, err := utils.UploadBytesToGCS(ctx, thumbKey, mimeType, thumbData)
		if err != nil {
			config.LogError(logger, "uploads", "uploadImage", "storing thumbnail", thumbKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store image"})
			return
		}

		logger.WithFields(logrus.Fields{
			"object_key": objectKey,
			"mime_type":  mimeType,
			"size":       len(data),
		}).Info("[upload.image]")

		c.JSON(http.StatusOK, gin.H{"data": uploadResponse{
			ImageURL:     imageURL,
			ThumbnailURL: thumbURL,
			ObjectKey:    objectKey,
		}})
	}
}

func encodeThumbnail(img image.Image, mimeType string) ([]byte, error) {
	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	switch mimeType {
	case "image/png":
		if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
			return nil, err
		}
	case "image/jpeg":
		if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported mime type %s", mimeType)
	}
	return buf.Bytes(), nil
}
