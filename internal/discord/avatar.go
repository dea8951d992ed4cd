package discord

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// EncodeAvatar turns image bytes into the data URI the avatar and guild
// icon endpoints expect.
func EncodeAvatar(image []byte) (string, error) {
	contentType := http.DetectContentType(image)
	switch contentType {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
	default:
		return "", fmt.Errorf("unsupported avatar type %s", contentType)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(image), nil
}

// LoadAvatar reads an image file, or passes through a value that already
// is a data URI.
func LoadAvatar(pathOrURI string) (string, error) {
	if strings.HasPrefix(pathOrURI, "data:") {
		return pathOrURI, nil
	}
	data, err := os.ReadFile(pathOrURI)
	if err != nil {
		return "", fmt.Errorf("failed to read avatar: %w", err)
	}
	return EncodeAvatar(data)
}
